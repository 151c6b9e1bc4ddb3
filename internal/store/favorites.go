package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// CreateFavorite inserts f unless the (user, message) pair already exists.
// It reports whether a row was created; a lost race surfaces as ErrFavoriteConflict
// only on drivers that reject the insert instead of ignoring it.
func (s *Store) CreateFavorite(ctx context.Context, f *chat.Favorite) (bool, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.FavoritedAt.IsZero() {
		f.FavoritedAt = time.Now().UTC()
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).
		Create(f)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, ErrFavoriteConflict
		}
		return false, unavailable("create favorite", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteFavorite removes the (user, message) favorite and reports whether one existed.
func (s *Store) DeleteFavorite(ctx context.Context, userID, messageID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&chat.Favorite{})
	if res.Error != nil {
		return false, unavailable("delete favorite", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountFavorites counts rows for the (user, message) pair; at most one by schema.
func (s *Store) CountFavorites(ctx context.Context, userID, messageID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&chat.Favorite{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&n).Error
	if err != nil {
		return 0, unavailable("count favorites", err)
	}
	return n, nil
}

// ListFavorited returns the user's favorites joined with their live messages and chats,
// most recently favorited first. Favorites whose message or chat is soft-deleted are skipped.
func (s *Store) ListFavorited(ctx context.Context, userID string) ([]chat.FavoritedMessage, error) {
	var favs []chat.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("favorited_at DESC").
		Order("message_id ASC").
		Find(&favs).Error
	if err != nil {
		return nil, unavailable("list favorites", err)
	}
	if len(favs) == 0 {
		return nil, nil
	}

	messageIDs := make([]string, 0, len(favs))
	for _, f := range favs {
		messageIDs = append(messageIDs, f.MessageID)
	}
	messages := make(map[string]chat.Message, len(favs))
	for _, ids := range chunk(messageIDs) {
		var batch []chat.Message
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&batch).Error; err != nil {
			return nil, unavailable("load favorited messages", err)
		}
		for _, m := range batch {
			messages[m.ID] = m
		}
	}

	chatIDs := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.ChatID]; ok {
			continue
		}
		seen[m.ChatID] = struct{}{}
		chatIDs = append(chatIDs, m.ChatID)
	}
	chats := make(map[string]chat.Chat, len(chatIDs))
	for _, ids := range chunk(chatIDs) {
		var batch []chat.Chat
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&batch).Error; err != nil {
			return nil, unavailable("load favorited chats", err)
		}
		for _, c := range batch {
			chats[c.ID] = c
		}
	}

	out := make([]chat.FavoritedMessage, 0, len(favs))
	for _, f := range favs {
		m, ok := messages[f.MessageID]
		if !ok {
			continue
		}
		c, ok := chats[m.ChatID]
		if !ok {
			continue
		}
		out = append(out, chat.FavoritedMessage{Favorite: f, Message: m, Chat: c})
	}
	return out, nil
}
