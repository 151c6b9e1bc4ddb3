package journey

import (
	"time"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// Statistics 是四个分类的计数快照，每次请求重新计算。
type Statistics struct {
	HeartToHearts    int `json:"heartToHearts"`
	GrowthMoments    int `json:"growthMoments"`
	GoalsAchieved    int `json:"goalsAchieved"`
	BreakthroughDays int `json:"breakthroughDays"`
}

// Count returns the statistic for one category.
func (s Statistics) Count(c Category) int {
	switch c {
	case HeartToHearts:
		return s.HeartToHearts
	case GrowthMoments:
		return s.GrowthMoments
	case GoalsAchieved:
		return s.GoalsAchieved
	case BreakthroughDays:
		return s.BreakthroughDays
	}
	return 0
}

// Emotion is the tagger output carried by an item.
type Emotion struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func emotionOf(m chat.Message) *Emotion {
	if !m.Tagged() {
		return nil
	}
	e := &Emotion{Label: *m.Emotion}
	if m.EmotionConfidence != nil {
		e.Confidence = *m.EmotionConfidence
	}
	return e
}

// Item is one entry of a category listing. Category selects which payload is set:
// Conversation for heart-to-hearts, Day for breakthrough-days, Moment otherwise.
type Item struct {
	Category   Category  `json:"category"`
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Highlight  string    `json:"highlight"`
	Tags       []string  `json:"tags"`
	Emotion    *Emotion  `json:"emotion,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`

	Conversation *Conversation `json:"conversation,omitempty"`
	Moment       *Moment       `json:"moment,omitempty"`
	Day          *Day          `json:"day,omitempty"`
}

// Conversation describes a heart-to-heart chat.
type Conversation struct {
	ChatID          string    `json:"chatId"`
	ChatName        string    `json:"chatName"`
	FavoriteCount   int       `json:"favoriteCount"`
	MessageCount    int       `json:"messageCount"`
	StartedAt       time.Time `json:"startedAt"`
	LastActivityAt  time.Time `json:"lastActivityAt"`
	DurationSeconds int64     `json:"durationSeconds"`
	HighlightID     string    `json:"highlightMessageId"`
}

// Moment describes a single favorited message.
type Moment struct {
	MessageID   string    `json:"messageId"`
	ChatID      string    `json:"chatId"`
	ChatName    string    `json:"chatName"`
	CreatedAt   time.Time `json:"createdAt"`
	FavoritedAt time.Time `json:"favoritedAt"`
}

// Day groups the favorited messages written on one UTC calendar day.
type Day struct {
	Date          string       `json:"date"`
	FavoriteCount int          `json:"favoriteCount"`
	Messages      []DayMessage `json:"messages"`
}

// DayMessage is a compact favorited message inside a Day bucket.
type DayMessage struct {
	MessageID string    `json:"messageId"`
	ChatID    string    `json:"chatId"`
	Excerpt   string    `json:"excerpt"`
	Emotion   *Emotion  `json:"emotion,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is one slice of a category listing. NextCursor is nil on the last page.
type Page struct {
	Category   Category `json:"category"`
	Items      []Item   `json:"items"`
	NextCursor *string  `json:"nextCursor"`
}

// FavoriteHighlight is a recently favorited message shown on the overview.
type FavoriteHighlight struct {
	MessageID   string    `json:"messageId"`
	ChatID      string    `json:"chatId"`
	ChatName    string    `json:"chatName"`
	Excerpt     string    `json:"excerpt"`
	Emotion     *Emotion  `json:"emotion,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FavoritedAt time.Time `json:"favoritedAt"`
}

// Highlights are the preview lists embedded in the overview.
type Highlights struct {
	Favorites []FavoriteHighlight `json:"favorites"`
	Chats     []Item              `json:"chats"`
	Messages  []Item              `json:"messages"`
	Vault     []Item              `json:"vault"`
}

// Overview is the journey landing payload.
type Overview struct {
	Statistics       Statistics `json:"statistics"`
	RecentHighlights Highlights `json:"recentHighlights"`
}

// PreviewLimits bound each overview list; non-positive values use the configured preview limit.
type PreviewLimits struct {
	Favorites int
	Chats     int
	Messages  int
	Vault     int
}
