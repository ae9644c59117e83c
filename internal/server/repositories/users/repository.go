package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/server/models"
)

// Repository is the user table. Email lookups are case-insensitive.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDAndEmail(ctx context.Context, id, email string) (*models.User, error)
	// LockByID takes a row lock on the user for the rest of the transaction.
	LockByID(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, email string, active bool) (string, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}
