package loginsessions

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

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query :=
		`DELETE FROM login_sessions
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.LoginSession) (*models.LoginSession, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO login_sessions (id, user_id, login_token, expires_at, last_activity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.LoginToken, s.ExpiresAt, s.LastActivity).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) Promote(ctx context.Context, userID, sessionToken string, at time.Time) (bool, error) {
	query :=
		`UPDATE login_sessions SET session_token = $2, is_pin_verified = true, last_activity = $3
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, sessionToken, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) FindVerified(ctx context.Context, userID string, now time.Time) (*models.LoginSession, error) {
	query :=
		`SELECT id, user_id, login_token, session_token, expires_at, last_activity, created_at FROM login_sessions
		 WHERE user_id = $1 AND session_token IS NOT NULL AND is_pin_verified = true AND expires_at > $2
		 `

	s := &models.LoginSession{IsPinVerified: true}
	var token sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID, now).Scan(
		&s.ID, &s.UserID, &s.LoginToken, &token, &s.ExpiresAt, &s.LastActivity, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if token.Valid {
		s.SessionToken = &token.String
	}
	return s, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, userID string, at time.Time) error {
	query :=
		`UPDATE login_sessions SET last_activity = $2
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
