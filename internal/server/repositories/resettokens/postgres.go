package resettokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query :=
		`DELETE FROM password_reset_tokens
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO password_reset_tokens (id, user_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, t.ID, t.UserID, t.Token, t.ExpiresAt).Scan(&t.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
