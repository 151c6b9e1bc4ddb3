package chat

import (
	"time"

	"gorm.io/gorm"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorAI   Author = "ai"
)

// Valid reports whether a is a known author.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorAI
}

// Message is a single turn of a chat. Only the soft-delete marker changes after creation.
type Message struct {
	ID                string         `json:"id" gorm:"type:char(36);primaryKey"`
	ChatID            string         `json:"chatId" gorm:"type:char(36);not null;index:idx_chat_messages,priority:1"`
	Author            Author         `json:"author" gorm:"type:varchar(16);not null"`
	Content           string         `json:"content" gorm:"type:text;not null"`
	Emotion           *string        `json:"emotion,omitempty" gorm:"type:varchar(32)"`
	EmotionConfidence *float64       `json:"emotionConfidence,omitempty"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"index:idx_chat_messages,priority:2"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Message) TableName() string { return "messages" }

// FromAI reports whether the AI counterpart authored the message.
func (m Message) FromAI() bool {
	return m.Author == AuthorAI
}

// Tagged reports whether the emotion tagger attached a label.
func (m Message) Tagged() bool {
	return m.Emotion != nil && *m.Emotion != ""
}
