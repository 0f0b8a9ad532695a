package models

import (
	"time"

	"github.com/google/uuid"
)

// Post представляет временный пост в ленте
type Post struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Дополнительные поля для API
	Author *User `json:"author,omitempty"`
}

// Expired сообщает, истек ли срок жизни поста
func (p *Post) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}
