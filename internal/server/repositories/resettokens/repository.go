package resettokens

import (
	"context"

	"github.com/dmitrijs2005/hourbank/internal/server/models"
)

type Repository interface {
	DeleteByUser(ctx context.Context, userID string) error
	Create(ctx context.Context, t *models.PasswordResetToken) (*models.PasswordResetToken, error)
}
