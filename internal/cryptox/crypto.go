// Package cryptox wraps bcrypt for password storage.
package cryptox

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used for stored password hashes.
const DefaultCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns the bcrypt hash of password at the given cost.
// A cost outside bcrypt's accepted range falls back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// ComparePassword reports whether password matches hash. Mismatch is not an
// error; a malformed hash is.
func ComparePassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// cost -> hash
var dummyHashes sync.Map

// DummyHash returns a valid hash at cost that matches no real password.
// Comparing against it costs as much as comparing against a stored hash.
func DummyHash(cost int) string {
	if v, ok := dummyHashes.Load(cost); ok {
		return v.(string)
	}
	h, err := HashPassword("hourbank-unknown-user", cost)
	if err != nil {
		return ""
	}
	v, _ := dummyHashes.LoadOrStore(cost, h)
	return v.(string)
}

// Wipe zeroes b. Use it on password buffers once they are no longer needed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
