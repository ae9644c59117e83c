// Package common defines shared constants, sentinel errors and small random
// helpers used across the hour bank server and admin tooling. Callers should
// use errors.Is to match the sentinel values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation error")

	// Authentication errors. All of them surface as 401 with generic wording.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidPin         = errors.New("invalid pin")
	ErrPinExpired         = errors.New("pin expired")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTooManyAttempts    = errors.New("too many attempts")

	// Conflict errors.
	ErrDuplicateEmail = errors.New("email already registered")

	// Dependency errors.
	ErrMailDelivery = errors.New("mail delivery failed")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level details that are safe to expose to the
// client. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError is a shortcut for a single-field validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
