package models

import "time"

// PinVerification is the one-time code of the second login phase. A user has
// at most one such record.
type PinVerification struct {
	ID        string
	UserID    string
	PinCode   string
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (p *PinVerification) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
