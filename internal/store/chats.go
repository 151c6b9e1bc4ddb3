package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// CreateChat inserts c, filling its id and timestamps when empty.
func (s *Store) CreateChat(ctx context.Context, c *chat.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return unavailable("create chat", err)
	}
	return nil
}

// GetChat returns a live chat by id.
func (s *Store) GetChat(ctx context.Context, id string) (chat.Chat, error) {
	var c chat.Chat
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Chat{}, ErrChatNotFound
		}
		return chat.Chat{}, unavailable("get chat", err)
	}
	return c, nil
}

// ListChats returns the owner's live chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	var chats []chat.Chat
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&chats).Error
	if err != nil {
		return nil, unavailable("list chats", err)
	}
	return chats, nil
}

// DeleteChat soft-deletes a chat; its favorites drop out of every journey computation.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&chat.Chat{}, "id = ?", id)
	if res.Error != nil {
		return unavailable("delete chat", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ChatActivity aggregates message counts and first/last timestamps per chat.
func (s *Store) ChatActivity(ctx context.Context, chatIDs []string) (map[string]chat.Activity, error) {
	activity := make(map[string]chat.Activity, len(chatIDs))
	for _, ids := range chunk(chatIDs) {
		var msgs []chat.Message
		err := s.db.WithContext(ctx).
			Select("id", "chat_id", "created_at").
			Where("chat_id IN ?", ids).
			Find(&msgs).Error
		if err != nil {
			return nil, unavailable("chat activity", err)
		}

		for _, m := range msgs {
			created := m.CreatedAt.UTC()
			a, ok := activity[m.ChatID]
			if !ok {
				a = chat.Activity{ChatID: m.ChatID, FirstMessageAt: created, LastMessageAt: created}
			}
			a.MessageCount++
			if created.Before(a.FirstMessageAt) {
				a.FirstMessageAt = created
			}
			if created.After(a.LastMessageAt) {
				a.LastMessageAt = created
			}
			activity[m.ChatID] = a
		}
	}
	return activity, nil
}
