package pins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
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
		`DELETE FROM pin_verifications
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, pin *models.PinVerification) (*models.PinVerification, error) {
	if pin.ID == "" {
		pin.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO pin_verifications (id, user_id, pin_code, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, pin.ID, pin.UserID, pin.PinCode, pin.ExpiresAt).Scan(&pin.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return pin, nil
}

func (r *PostgresRepository) FindUnused(ctx context.Context, userID, pin string) (*models.PinVerification, error) {
	query :=
		`SELECT id, user_id, pin_code, expires_at, created_at FROM pin_verifications
		 WHERE user_id = $1 AND pin_code = $2 AND is_used = false
		 `

	p := &models.PinVerification{}
	err := r.db.QueryRowContext(ctx, query, userID, pin).Scan(&p.ID, &p.UserID, &p.PinCode, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	query :=
		`UPDATE pin_verifications SET is_used = true, used_at = $2
		 WHERE id = $1 AND is_used = false
		 `

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
