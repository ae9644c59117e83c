package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/server/config"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/memory"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/repomanager"
)

const (
	maxOpenConns   = 20
	connectTimeout = 2 * time.Second
)

// Store bundles the credential store handles a service needs.
type Store struct {
	Pool    dbx.Pool
	Manager repomanager.RepositoryManager
	// DB is nil for the in-memory store.
	DB *sql.DB
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenStore connects to the store named by cfg.DatabaseDSN. config.MemoryDSN
// selects a fresh in-memory store. Postgres migrations are applied when
// migrate is set.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (*Store, error) {
	if cfg.UsesMemoryStore() {
		m := memory.New()
		return &Store{Pool: m, Manager: m}, nil
	}

	db, err := sqlOpen("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db connect error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if migrate {
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migration error: %w", err)
		}
	}

	return &Store{Pool: dbx.NewSQLPool(db, nil), Manager: m, DB: db}, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
