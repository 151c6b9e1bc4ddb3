package chat

import "time"

// Favorite marks a message as meaningful to a user. At most one row exists per
// (user, message); un-favoriting deletes the row.
type Favorite struct {
	ID          string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"userId" gorm:"type:varchar(64);not null;uniqueIndex:ux_favorite_user_message,priority:1"`
	MessageID   string    `json:"messageId" gorm:"type:char(36);not null;index;uniqueIndex:ux_favorite_user_message,priority:2"`
	FavoritedAt time.Time `json:"favoritedAt" gorm:"not null"`
}

func (Favorite) TableName() string { return "favorites" }

// FavoritedMessage is a live favorite joined with its message and chat.
type FavoritedMessage struct {
	Favorite Favorite
	Message  Message
	Chat     Chat
}
