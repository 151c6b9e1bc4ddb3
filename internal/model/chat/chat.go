package chat

import (
	"time"

	"gorm.io/gorm"
)

// Chat is a conversation thread owned by one user.
type Chat struct {
	ID        string         `json:"id" gorm:"type:char(36);primaryKey"`
	OwnerID   string         `json:"ownerId" gorm:"type:varchar(64);not null;index:idx_chat_owner"`
	Name      string         `json:"name" gorm:"type:varchar(200);not null;default:'New chat'"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Chat) TableName() string { return "chats" }

// Activity summarises every live message of a chat, favorited or not.
type Activity struct {
	ChatID         string
	MessageCount   int
	FirstMessageAt time.Time
	LastMessageAt  time.Time
}

// Duration is the span between the first and the last message.
func (a Activity) Duration() time.Duration {
	if a.LastMessageAt.Before(a.FirstMessageAt) {
		return 0
	}
	return a.LastMessageAt.Sub(a.FirstMessageAt)
}
