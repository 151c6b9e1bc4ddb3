package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
	"github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/internal/store"
)

const (
	maxNameRunes    = 200
	maxContentRunes = 4000
	defaultChatName = "New chat"
)

var (
	ErrContentRequired   = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message content is too long")
	ErrNameTooLong       = errors.New("chat name is too long")
	ErrAIMessageFavorite = journey.ErrAIMessageFavorite
)

// Store is the persistence the messaging service needs.
type Store interface {
	CreateChat(ctx context.Context, c *chat.Chat) error
	GetChat(ctx context.Context, id string) (chat.Chat, error)
	ListChats(ctx context.Context, ownerID string) ([]chat.Chat, error)
	CreateMessage(ctx context.Context, m *chat.Message) error
	ListMessages(ctx context.Context, chatID string) ([]chat.Message, error)
}

// Tagger attaches an emotion to user messages.
type Tagger interface {
	Tag(ctx context.Context, history []chat.Message, content string) (analysis.Tag, bool)
}

// Replier writes the companion's answer.
type Replier interface {
	Reply(ctx context.Context, history []chat.Message, userMessage string, tag *analysis.Tag) (string, error)
}

// Journey receives new messages and favorite changes.
type Journey interface {
	OnMessageIngested(ctx context.Context, msg chat.Message)
	RecordFavorite(ctx context.Context, userID, messageID string) (bool, error)
	RemoveFavorite(ctx context.Context, userID, messageID string) (bool, error)
}

// Service 管理日记会话与消息，并在消息写入后触发情绪标注与自动收藏。
type Service struct {
	store   Store
	tagger  Tagger
	journey Journey
	replier Replier
}

// NewService wires the messaging service. tagger and replier may be nil.
func NewService(st Store, tagger Tagger, journey Journey, replier Replier) *Service {
	return &Service{
		store:   st,
		tagger:  tagger,
		journey: journey,
		replier: replier,
	}
}

// SendResult is the outcome of SendMessage.
type SendResult struct {
	Message chat.Message  `json:"message"`
	Reply   *chat.Message `json:"reply,omitempty"`
}

// CreateChat opens a new conversation for owner.
func (s *Service) CreateChat(ctx context.Context, ownerID, name string) (chat.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultChatName
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return chat.Chat{}, ErrNameTooLong
	}

	c := chat.Chat{OwnerID: ownerID, Name: name}
	if err := s.store.CreateChat(ctx, &c); err != nil {
		return chat.Chat{}, err
	}
	return c, nil
}

// GetChat returns the chat if owner owns it. Foreign chats read as missing.
func (s *Service) GetChat(ctx context.Context, ownerID, chatID string) (chat.Chat, error) {
	c, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return chat.Chat{}, err
	}
	if c.OwnerID != ownerID {
		return chat.Chat{}, store.ErrChatNotFound
	}
	return c, nil
}

// ListChats returns owner's chats, most recent first.
func (s *Service) ListChats(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	chats, err := s.store.ListChats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []chat.Chat{}
	}
	return chats, nil
}

// LoadTranscript returns the chat messages in chronological order.
func (s *Service) LoadTranscript(ctx context.Context, ownerID, chatID string) ([]chat.Message, error) {
	if _, err := s.GetChat(ctx, ownerID, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}

// SendMessage stores a user message. Tagging, auto-favoriting and the companion
// reply are best effort; only persisting the user message can fail the call.
func (s *Service) SendMessage(ctx context.Context, ownerID, chatID, content string) (SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return SendResult{}, ErrContentRequired
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return SendResult{}, ErrContentTooLong
	}

	c, err := s.GetChat(ctx, ownerID, chatID)
	if err != nil {
		return SendResult{}, err
	}

	history, err := s.store.ListMessages(ctx, c.ID)
	if err != nil {
		logger.Warn("load history failed, tagging without context", "chat", c.ID, "error", err)
		history = nil
	}

	msg := chat.Message{ChatID: c.ID, Author: chat.AuthorUser, Content: content}
	var tag *analysis.Tag
	if s.tagger != nil {
		if t, ok := s.tagger.Tag(ctx, history, content); ok {
			tag = &t
			label := string(t.Label)
			confidence := t.Confidence
			msg.Emotion = &label
			msg.EmotionConfidence = &confidence
		}
	}

	if err := s.store.CreateMessage(ctx, &msg); err != nil {
		return SendResult{}, err
	}

	if s.journey != nil {
		s.journey.OnMessageIngested(ctx, msg)
	}

	result := SendResult{Message: msg}
	if s.replier == nil {
		return result, nil
	}

	text, err := s.replier.Reply(ctx, history, content, tag)
	if err != nil {
		logger.Warn("companion reply failed", "chat", c.ID, "error", err)
		return result, nil
	}
	// The reply must sort after the message even on millisecond-precision columns.
	reply := chat.Message{ChatID: c.ID, Author: chat.AuthorAI, Content: text, CreatedAt: time.Now().UTC()}
	if floor := msg.CreatedAt.Add(time.Millisecond); reply.CreatedAt.Before(floor) {
		reply.CreatedAt = floor
	}
	if err := s.store.CreateMessage(ctx, &reply); err != nil {
		logger.Warn("store companion reply failed", "chat", c.ID, "error", err)
		return result, nil
	}
	result.Reply = &reply
	return result, nil
}

// Favorite bookmarks a user-authored message in one of the user's chats.
// Favoriting twice is not an error; the bool reports whether a row was added.
func (s *Service) Favorite(ctx context.Context, userID, messageID string) (bool, error) {
	return s.journey.RecordFavorite(ctx, userID, messageID)
}

// Unfavorite removes the user's favorite on messageID if there is one.
func (s *Service) Unfavorite(ctx context.Context, userID, messageID string) (bool, error) {
	return s.journey.RemoveFavorite(ctx, userID, messageID)
}
