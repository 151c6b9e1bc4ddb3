package journey

import (
	"strings"
	"time"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// dayLayout 是 breakthrough-days 的日期桶格式（UTC）。
const dayLayout = "2006-01-02"

// Classification 描述一条收藏消息对各分类的贡献。
type Classification struct {
	Categories CategorySet
	// Themes are the goal keywords found in the content, in keyword order.
	Themes []string
	// ChatID and Day name the aggregate buckets the message belongs to.
	ChatID string
	Day    string
}

// Classifier applies the four heuristics independently. The rules are deliberately
// permissive: any favorite counts toward every category it is eligible for.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier matching the given lower-case keywords.
func NewClassifier(keywords []string) Classifier {
	return Classifier{keywords: keywords}
}

// Classify maps one favorited message, with its chat, to the categories it feeds.
func (c Classifier) Classify(fm chat.FavoritedMessage) Classification {
	var out Classification

	// heart-to-hearts: every live chat holding a favorite qualifies.
	if fm.Chat.ID != "" {
		out.Categories = out.Categories.with(HeartToHearts)
		out.ChatID = fm.Chat.ID
	}

	if fm.Message.Tagged() {
		out.Categories = out.Categories.with(GrowthMoments)
	}

	if themes := c.matchKeywords(fm.Message.Content); len(themes) > 0 {
		out.Categories = out.Categories.with(GoalsAchieved)
		out.Themes = themes
	}

	if !fm.Message.CreatedAt.IsZero() {
		out.Categories = out.Categories.with(BreakthroughDays)
		out.Day = dayOf(fm.Message.CreatedAt)
	}

	return out
}

// matchKeywords uses plain substring containment on the lower-cased content.
func (c Classifier) matchKeywords(content string) []string {
	lowered := strings.ToLower(content)
	var themes []string
	for _, k := range c.keywords {
		if strings.Contains(lowered, k) {
			themes = append(themes, k)
		}
	}
	return themes
}

func dayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
