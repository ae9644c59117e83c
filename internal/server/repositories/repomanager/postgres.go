// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/server/migrations"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/loginsessions"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/pins"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Pins(db dbx.DBTX) pins.Repository {
	return pins.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) LoginSessions(db dbx.DBTX) loginsessions.Repository {
	return loginsessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return resettokens.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseStatusContext is a seam for testing goose.StatusContext.
var gooseStatusContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.StatusContext(ctx, db, dir, opts...)
}

func setupGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

// RunMigrations applies every pending embedded migration.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// MigrationStatus logs the applied state of every embedded migration through
// goose's logger.
func (m *PostgresRepositoryManager) MigrationStatus(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return gooseStatusContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
