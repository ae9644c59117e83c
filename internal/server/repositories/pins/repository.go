package pins

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/server/models"
)

type Repository interface {
	DeleteByUser(ctx context.Context, userID string) error
	Create(ctx context.Context, pin *models.PinVerification) (*models.PinVerification, error)
	// FindUnused returns the unused record of userID whose code is pin,
	// regardless of expiry.
	FindUnused(ctx context.Context, userID, pin string) (*models.PinVerification, error)
	// MarkUsed consumes the record. It reports false when the record was
	// already used or is gone.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
}
