package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/loginsessions"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/pins"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	var m RepositoryManager = NewPostgresRepositoryManager()
	assert.NotNil(t, m)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)
	m := NewPostgresRepositoryManager()

	assert.IsType(t, &users.PostgresRepository{}, m.Users(db))
	assert.IsType(t, &pins.PostgresRepository{}, m.Pins(db))
	assert.IsType(t, &loginsessions.PostgresRepository{}, m.LoginSessions(db))
	assert.IsType(t, &resettokens.PostgresRepository{}, m.ResetTokens(db))
}

func TestRunMigrations_Success(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if got != db {
			return errors.New("unexpected db")
		}
		return nil
	}

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	require.EqualError(t, err, "boom")
}

func TestMigrationStatus(t *testing.T) {
	db := newDB(t)

	orig := gooseStatusContext
	t.Cleanup(func() { gooseStatusContext = orig })
	called := false
	gooseStatusContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		return nil
	}

	require.NoError(t, NewPostgresRepositoryManager().MigrationStatus(context.Background(), db))
	assert.True(t, called)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	require.NoError(t, setupGoose())
	ms, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, int64(1), ms[0].Version)
}
