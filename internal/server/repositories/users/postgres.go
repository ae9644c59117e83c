package users

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
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, email, name, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.IsActive).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectUser = `SELECT id, email, name, password_hash, is_active, last_login, created_at FROM users`

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive, &lastLogin, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`
		 WHERE LOWER(email) = LOWER($1)
		 `, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`
		 WHERE id = $1
		 `, id)
}

func (r *PostgresRepository) GetByIDAndEmail(ctx context.Context, id, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`
		 WHERE id = $1 AND LOWER(email) = LOWER($2)
		 `, id, email)
}

func (r *PostgresRepository) LockByID(ctx context.Context, id string) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var locked string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE users SET last_login = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SetActive flips the active flag and returns the user's id.
func (r *PostgresRepository) SetActive(ctx context.Context, email string, active bool) (string, error) {
	query :=
		`UPDATE users SET is_active = $2
		 WHERE LOWER(email) = LOWER($1)
		 RETURNING id
		 `

	var id string
	if err := r.db.QueryRowContext(ctx, query, email, active).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	query :=
		`DELETE FROM users
		 WHERE LOWER(email) = LOWER($1)
		 `

	res, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
