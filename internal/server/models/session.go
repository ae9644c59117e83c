package models

import "time"

// LoginSession tracks one login attempt from password check to verified
// session. SessionToken stays nil until the PIN is accepted.
type LoginSession struct {
	ID            string
	UserID        string
	LoginToken    string
	IsPinVerified bool
	SessionToken  *string
	ExpiresAt     time.Time
	LastActivity  time.Time
	CreatedAt     time.Time
}

// PasswordResetToken is an opaque single-use recovery token.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
