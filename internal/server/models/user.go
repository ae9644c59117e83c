// Package models defines server-side records persisted in the credential store.
package models

import "time"

// User is an institutional account. Email is stored trimmed and lower-cased.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// Profile is the minimal user view returned to clients.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Profile() Profile {
	return Profile{Email: u.Email, Name: u.Name}
}
