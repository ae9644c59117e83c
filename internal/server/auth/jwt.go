// Package auth issues and verifies the two kinds of signed tokens used by the
// login flow.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind is carried in the mandatory "type" claim.
type TokenKind string

const (
	KindLogin   TokenKind = "login"
	KindSession TokenKind = "session"
)

// Claims are the registered claims plus the owner and the token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Type   TokenKind `json:"type"`
}

// Codec signs login tokens and session tokens with distinct keys, so a token
// of one kind never verifies as the other even before the type check.
type Codec struct {
	loginKey   []byte
	sessionKey []byte
	now        func() time.Time
}

func NewCodec(loginKey, sessionKey []byte) (*Codec, error) {
	if len(loginKey) == 0 || len(sessionKey) == 0 {
		return nil, errors.New("token keys must not be empty")
	}
	if string(loginKey) == string(sessionKey) {
		return nil, errors.New("login and session keys must differ")
	}
	return &Codec{loginKey: loginKey, sessionKey: sessionKey, now: time.Now}, nil
}

// WithClock returns a copy of c that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) key(kind TokenKind) ([]byte, error) {
	switch kind {
	case KindLogin:
		return c.loginKey, nil
	case KindSession:
		return c.sessionKey, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}

func (c *Codec) issue(kind TokenKind, userID, email string, ttl time.Duration) (string, error) {
	key, err := c.key(kind)
	if err != nil {
		return "", err
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		Type:   kind,
	})

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// IssueLoginToken returns a 15 minute login token.
func (c *Codec) IssueLoginToken(userID, email string) (string, error) {
	return c.issue(KindLogin, userID, email, common.LoginTokenValidity)
}

func (c *Codec) IssueSessionToken(userID, email string, ttl time.Duration) (string, error) {
	return c.issue(KindSession, userID, email, ttl)
}

// Verify checks signature, algorithm, expiry and kind. It never touches the
// store. Every failure matches common.ErrInvalidToken; an expired token also
// matches common.ErrTokenExpired.
func (c *Codec) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	key, err := c.key(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", common.ErrInvalidToken, kind, claims.Type)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrInvalidToken)
	}

	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.AuthorizationScheme) {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrInvalidToken)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrInvalidToken)
	}
	return token, nil
}
