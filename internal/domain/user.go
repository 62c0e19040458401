package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account of the email/password identity provider.
// Email is stored lowercased; PasswordHash is a bcrypt hash and never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an authenticated identity extracted from a verified token.
type Session struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}
