package journey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
	"github.com/zhouzirui/heartnote/backend/internal/store"
)

// ErrAIMessageFavorite rejects favorites on companion-authored messages.
var ErrAIMessageFavorite = errors.New("ai messages cannot be favorited")

// Store is the slice of the persistence layer the engine reads and writes.
type Store interface {
	GetChat(ctx context.Context, id string) (chat.Chat, error)
	GetMessage(ctx context.Context, id string) (chat.Message, error)
	CreateFavorite(ctx context.Context, f *chat.Favorite) (bool, error)
	DeleteFavorite(ctx context.Context, userID, messageID string) (bool, error)
	ListFavorited(ctx context.Context, userID string) ([]chat.FavoritedMessage, error)
	ChatActivity(ctx context.Context, chatIDs []string) (map[string]chat.Activity, error)
}

// Notifier is told when a user's favorite set changed.
type Notifier interface {
	FavoritesChanged(userID string)
}

// Option customises an Engine.
type Option func(*Engine)

// WithNotifier publishes favorite changes, e.g. to live journey subscribers.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// Engine 从用户的收藏消息派生旅程统计与分类列表。
// 它只持有不可变配置与存储句柄，每次请求都重新计算。
type Engine struct {
	store      Store
	cfg        Config
	classifier Classifier
	notifier   Notifier
}

// NewEngine builds an engine over st with the given rules.
func NewEngine(st Store, cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalized()
	e := &Engine{
		store:      st,
		cfg:        cfg,
		classifier: NewClassifier(cfg.GoalKeywords),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnMessageIngested 在用户消息入库后运行：情绪置信度达到阈值时自动收藏。
// 失败只记录日志，不影响消息写入。
func (e *Engine) OnMessageIngested(ctx context.Context, msg chat.Message) {
	if msg.FromAI() || !msg.Tagged() || msg.EmotionConfidence == nil {
		return
	}
	if *msg.EmotionConfidence < e.cfg.ConfidenceThreshold {
		return
	}

	c, err := e.store.GetChat(ctx, msg.ChatID)
	if err != nil {
		logger.Warn("auto-favorite skipped", "message", msg.ID, "chat", msg.ChatID, "error", err)
		return
	}

	created, err := e.createFavorite(ctx, c.OwnerID, msg.ID)
	if err != nil {
		logger.Warn("auto-favorite failed", "user", c.OwnerID, "message", msg.ID, "error", err)
		return
	}
	if created {
		logger.Debug("auto-favorited message", "user", c.OwnerID, "message", msg.ID, "emotion", *msg.Emotion)
	}
}

// RecordFavorite creates the (user, message) favorite once. Only user-authored
// messages in one of userID's chats can be favorited; anything else reads as
// ErrAIMessageFavorite or store.ErrMessageNotFound. An existing row, including
// one inserted by a concurrent caller, is reported as (false, nil).
func (e *Engine) RecordFavorite(ctx context.Context, userID, messageID string) (bool, error) {
	m, err := e.store.GetMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	if m.FromAI() {
		return false, ErrAIMessageFavorite
	}
	c, err := e.store.GetChat(ctx, m.ChatID)
	if errors.Is(err, store.ErrChatNotFound) {
		return false, store.ErrMessageNotFound
	}
	if err != nil {
		return false, err
	}
	if c.OwnerID != userID {
		return false, store.ErrMessageNotFound
	}
	return e.createFavorite(ctx, userID, m.ID)
}

func (e *Engine) createFavorite(ctx context.Context, userID, messageID string) (bool, error) {
	created, err := e.store.CreateFavorite(ctx, &chat.Favorite{UserID: userID, MessageID: messageID})
	if errors.Is(err, store.ErrFavoriteConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if created {
		e.notify(userID)
	}
	return created, nil
}

// RemoveFavorite deletes the (user, message) favorite if present.
func (e *Engine) RemoveFavorite(ctx context.Context, userID, messageID string) (bool, error) {
	removed, err := e.store.DeleteFavorite(ctx, userID, messageID)
	if err != nil {
		return false, err
	}
	if removed {
		e.notify(userID)
	}
	return removed, nil
}

func (e *Engine) notify(userID string) {
	if e.notifier != nil {
		e.notifier.FavoritesChanged(userID)
	}
}

// ComputeStatistics counts the four categories for userID.
func (e *Engine) ComputeStatistics(ctx context.Context, userID string) (Statistics, error) {
	snap, err := e.load(ctx, userID)
	if err != nil {
		return Statistics{}, err
	}
	return snap.statistics(), nil
}

// ListCategory returns one page of category items ordered newest first.
// An empty token starts from the beginning.
func (e *Engine) ListCategory(ctx context.Context, userID string, category Category, token string, limit int) (Page, error) {
	if category.bit() == 0 {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	var cur *cursor
	if token != "" {
		c, err := decodeCursor(token, userID, category)
		if err != nil {
			return Page{}, err
		}
		cur = &c
	}

	snap, err := e.load(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	entries, err := e.entries(ctx, snap, category)
	if err != nil {
		return Page{}, err
	}

	return paginate(userID, category, entries, cur, e.cfg.pageLimit(limit)), nil
}

// Overview bundles the statistics with short previews of each list.
func (e *Engine) Overview(ctx context.Context, userID string, limits PreviewLimits) (Overview, error) {
	snap, err := e.load(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	out := Overview{Statistics: snap.statistics()}

	favorites := head(snap.favorites, e.cfg.previewLimit(limits.Favorites))
	out.RecentHighlights.Favorites = make([]FavoriteHighlight, 0, len(favorites))
	for _, fm := range favorites {
		out.RecentHighlights.Favorites = append(out.RecentHighlights.Favorites, FavoriteHighlight{
			MessageID:   fm.Message.ID,
			ChatID:      fm.Chat.ID,
			ChatName:    fm.Chat.Name,
			Excerpt:     truncate(fm.Message.Content, excerptRunes),
			Emotion:     emotionOf(fm.Message),
			CreatedAt:   fm.Message.CreatedAt.UTC(),
			FavoritedAt: fm.Favorite.FavoritedAt.UTC(),
		})
	}

	lists := []struct {
		category Category
		limit    int
		dst      *[]Item
	}{
		{HeartToHearts, limits.Chats, &out.RecentHighlights.Chats},
		{GrowthMoments, limits.Messages, &out.RecentHighlights.Messages},
		{BreakthroughDays, limits.Vault, &out.RecentHighlights.Vault},
	}
	for _, l := range lists {
		entries, err := e.entries(ctx, snap, l.category)
		if err != nil {
			return Overview{}, err
		}
		entries = head(entries, e.cfg.previewLimit(l.limit))
		items := make([]Item, 0, len(entries))
		for _, en := range entries {
			items = append(items, en.item)
		}
		*l.dst = items
	}

	return out, nil
}

// snapshot is the classified favorite set of one user for one request.
type snapshot struct {
	favorites []chat.FavoritedMessage
	classes   []Classification
	chats     map[string][]int
	days      map[string][]int
}

func (e *Engine) load(ctx context.Context, userID string) (*snapshot, error) {
	favorites, err := e.store.ListFavorited(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	sort.SliceStable(favorites, func(i, j int) bool {
		a, b := favorites[i], favorites[j]
		if !a.Favorite.FavoritedAt.Equal(b.Favorite.FavoritedAt) {
			return a.Favorite.FavoritedAt.After(b.Favorite.FavoritedAt)
		}
		return a.Message.ID < b.Message.ID
	})

	snap := &snapshot{
		favorites: favorites,
		classes:   make([]Classification, len(favorites)),
		chats:     make(map[string][]int),
		days:      make(map[string][]int),
	}
	for i, fm := range favorites {
		cl := e.classifier.Classify(fm)
		snap.classes[i] = cl
		if cl.Categories.Has(HeartToHearts) {
			snap.chats[cl.ChatID] = append(snap.chats[cl.ChatID], i)
		}
		if cl.Categories.Has(BreakthroughDays) {
			snap.days[cl.Day] = append(snap.days[cl.Day], i)
		}
	}
	return snap, nil
}

func (s *snapshot) statistics() Statistics {
	stats := Statistics{
		HeartToHearts:    len(s.chats),
		BreakthroughDays: len(s.days),
	}
	for _, cl := range s.classes {
		if cl.Categories.Has(GrowthMoments) {
			stats.GrowthMoments++
		}
		if cl.Categories.Has(GoalsAchieved) {
			stats.GoalsAchieved++
		}
	}
	return stats
}

type entry struct {
	ts   time.Time
	item Item
}

// entries builds every item of category from the snapshot, sorted for paging.
func (e *Engine) entries(ctx context.Context, snap *snapshot, category Category) ([]entry, error) {
	var out []entry

	switch category {
	case HeartToHearts:
		ids := make([]string, 0, len(snap.chats))
		for id := range snap.chats {
			ids = append(ids, id)
		}
		activity := map[string]chat.Activity{}
		if len(ids) > 0 {
			var err error
			if activity, err = e.store.ChatActivity(ctx, ids); err != nil {
				return nil, fmt.Errorf("load chat activity: %w", err)
			}
		}
		for _, id := range ids {
			out = append(out, conversationEntry(snap, snap.chats[id], activity[id]))
		}

	case GrowthMoments, GoalsAchieved:
		for i, fm := range snap.favorites {
			cl := snap.classes[i]
			if cl.Categories.Has(category) {
				out = append(out, momentEntry(category, fm, cl))
			}
		}

	case BreakthroughDays:
		for day, idx := range snap.days {
			out = append(out, dayEntry(snap, day, idx))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ts.Equal(out[j].ts) {
			return out[i].ts.After(out[j].ts)
		}
		return out[i].item.ID < out[j].item.ID
	})
	return out, nil
}

func paginate(userID string, category Category, entries []entry, cur *cursor, limit int) Page {
	start := 0
	if cur != nil {
		start = sort.Search(len(entries), func(i int) bool {
			return cur.after(entries[i].ts, entries[i].item.ID)
		})
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}

	page := Page{Category: category, Items: make([]Item, 0, end-start)}
	for _, en := range entries[start:end] {
		page.Items = append(page.Items, en.item)
	}
	if end < len(entries) {
		last := entries[end-1]
		token := encodeCursor(userID, category, last.ts, last.item.ID)
		page.NextCursor = &token
	}
	return page
}

func momentEntry(category Category, fm chat.FavoritedMessage, cl Classification) entry {
	m := fm.Message
	ts := m.CreatedAt.UTC()

	item := Item{
		Category:   category,
		ID:         m.ID,
		Summary:    truncate(m.Content, summaryRunes),
		Highlight:  truncate(m.Content, highlightRunes),
		Tags:       []string{},
		Emotion:    emotionOf(m),
		OccurredAt: ts,
		Moment: &Moment{
			MessageID:   m.ID,
			ChatID:      fm.Chat.ID,
			ChatName:    fm.Chat.Name,
			CreatedAt:   ts,
			FavoritedAt: fm.Favorite.FavoritedAt.UTC(),
		},
	}

	if category == GoalsAchieved {
		item.Title = truncate(firstLine(m.Content), titleRunes)
		item.Tags = append(item.Tags, cl.Themes...)
	} else {
		item.Title = "A moment of " + *m.Emotion
	}
	return entry{ts: ts, item: item}
}

func conversationEntry(snap *snapshot, idx []int, act chat.Activity) entry {
	best := snap.favorites[idx[0]]
	earliest := best.Message.CreatedAt
	for _, i := range idx[1:] {
		fm := snap.favorites[i]
		if preferHighlight(fm.Message, best.Message) {
			best = fm
		}
		if fm.Message.CreatedAt.Before(earliest) {
			earliest = fm.Message.CreatedAt
		}
	}
	ts := best.Message.CreatedAt.UTC()

	conv := &Conversation{
		ChatID:         best.Chat.ID,
		ChatName:       best.Chat.Name,
		FavoriteCount:  len(idx),
		MessageCount:   act.MessageCount,
		StartedAt:      act.FirstMessageAt.UTC(),
		LastActivityAt: act.LastMessageAt.UTC(),
		HighlightID:    best.Message.ID,
	}
	if act.MessageCount == 0 {
		// Activity missing: fall back to what the favorites alone tell us.
		conv.MessageCount = len(idx)
		conv.StartedAt = earliest.UTC()
		conv.LastActivityAt = ts
	}
	conv.DurationSeconds = int64(conv.LastActivityAt.Sub(conv.StartedAt) / time.Second)

	title := best.Chat.Name
	if title == "" {
		title = "Untitled conversation"
	}
	return entry{ts: ts, item: Item{
		Category:     HeartToHearts,
		ID:           best.Chat.ID,
		Title:        truncate(title, titleRunes),
		Summary:      fmt.Sprintf("%d favorited of %d messages", conv.FavoriteCount, conv.MessageCount),
		Highlight:    truncate(best.Message.Content, highlightRunes),
		Tags:         []string{},
		Emotion:      emotionOf(best.Message),
		OccurredAt:   ts,
		Conversation: conv,
	}}
}

func dayEntry(snap *snapshot, day string, idx []int) entry {
	msgs := make([]chat.FavoritedMessage, 0, len(idx))
	for _, i := range idx {
		msgs = append(msgs, snap.favorites[i])
	}
	sort.Slice(msgs, func(i, j int) bool {
		a, b := msgs[i].Message, msgs[j].Message
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	best := msgs[0]
	for _, fm := range msgs[1:] {
		if preferHighlight(fm.Message, best.Message) {
			best = fm
		}
	}

	d := &Day{Date: day, FavoriteCount: len(msgs), Messages: make([]DayMessage, 0, len(msgs))}
	for _, fm := range msgs {
		d.Messages = append(d.Messages, DayMessage{
			MessageID: fm.Message.ID,
			ChatID:    fm.Chat.ID,
			Excerpt:   truncate(fm.Message.Content, excerptRunes),
			Emotion:   emotionOf(fm.Message),
			CreatedAt: fm.Message.CreatedAt.UTC(),
		})
	}

	title := day
	if t, err := time.Parse(dayLayout, day); err == nil {
		title = t.Format("Monday, January 2, 2006")
	}
	ts := msgs[0].Message.CreatedAt.UTC()
	return entry{ts: ts, item: Item{
		Category:   BreakthroughDays,
		ID:         day,
		Title:      title,
		Summary:    fmt.Sprintf("%d favorited moments", len(msgs)),
		Highlight:  truncate(best.Message.Content, highlightRunes),
		Tags:       []string{},
		Emotion:    emotionOf(best.Message),
		OccurredAt: ts,
		Day:        d,
	}}
}

// preferHighlight picks the most recent message, then the higher confidence, then the lower id.
func preferHighlight(candidate, current chat.Message) bool {
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	cc, oc := confidenceOf(candidate), confidenceOf(current)
	if cc != oc {
		return cc > oc
	}
	return candidate.ID < current.ID
}

func confidenceOf(m chat.Message) float64 {
	if m.EmotionConfidence == nil {
		return 0
	}
	return *m.EmotionConfidence
}

func head[T any](s []T, n int) []T {
	if n < len(s) {
		return s[:n]
	}
	return s
}
