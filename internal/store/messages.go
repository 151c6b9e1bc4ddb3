package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// CreateMessage appends m to its chat and bumps the chat's updated_at.
func (s *Store) CreateMessage(ctx context.Context, m *chat.Message) error {
	if !m.Author.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAuthor, m.Author)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&chat.Chat{}).Where("id = ?", m.ChatID).Update("updated_at", m.CreatedAt).Error
	})
	if err != nil {
		return unavailable("create message", err)
	}
	return nil
}

// GetMessage returns a live message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (chat.Message, error) {
	var m chat.Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, ErrMessageNotFound
		}
		return chat.Message{}, unavailable("get message", err)
	}
	return m, nil
}

// ListMessages returns the chat transcript in chronological order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]chat.Message, error) {
	var msgs []chat.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	return msgs, nil
}

// DeleteMessage soft-deletes a message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&chat.Message{}, "id = ?", id)
	if res.Error != nil {
		return unavailable("delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
