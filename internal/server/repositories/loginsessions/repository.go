package loginsessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/server/models"
)

type Repository interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, s *models.LoginSession) (*models.LoginSession, error)
	// Promote attaches the session token to the user's login session and
	// marks it verified. It reports false when no login session exists.
	Promote(ctx context.Context, userID, sessionToken string, at time.Time) (bool, error)
	// FindVerified returns the user's verified session that is still valid at now.
	FindVerified(ctx context.Context, userID string, now time.Time) (*models.LoginSession, error)
	Touch(ctx context.Context, userID string, at time.Time) error
}
