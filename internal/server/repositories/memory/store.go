// Package memory is an in-process credential store with the same contracts
// as the Postgres repositories. It backs development runs (memory:// DSN) and
// workflow tests.
//
// Transactions are serialized: WithTx holds the store lock for the whole
// callback and restores a snapshot when the callback fails, so readers never
// observe a half-applied replace.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/loginsessions"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/pins"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory store does not execute SQL")

// handle is the DBTX the store hands out. It only tells the repositories
// whether the store lock is already held; it never runs SQL.
type handle struct {
	inTx bool
}

func (handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type tables struct {
	users    map[string]models.User // by id
	pins     map[string]models.PinVerification
	sessions map[string]models.LoginSession
	resets   map[string]models.PasswordResetToken // by user id
}

func newTables() tables {
	return tables{
		users:    map[string]models.User{},
		pins:     map[string]models.PinVerification{},
		sessions: map[string]models.LoginSession{},
		resets:   map[string]models.PasswordResetToken{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.pins {
		c.pins[k] = v
	}
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	for k, v := range t.resets {
		c.resets[k] = v
	}
	return c
}

// Store implements dbx.Pool and repomanager.RepositoryManager.
type Store struct {
	mu sync.Mutex
	t  tables
}

func New() *Store {
	return &Store{t: newTables()}
}

func (s *Store) Conn() dbx.DBTX {
	return handle{}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	defer func() {
		if p := recover(); p != nil {
			s.t = snapshot
			panic(p)
		}
		if err != nil {
			s.t = snapshot
		}
	}()

	return fn(ctx, handle{inTx: true})
}

// RunMigrations is a no-op; the tables exist from New on.
func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &userRepo{s: s, h: asHandle(db)}
}

func (s *Store) Pins(db dbx.DBTX) pins.Repository {
	return &pinRepo{s: s, h: asHandle(db)}
}

func (s *Store) LoginSessions(db dbx.DBTX) loginsessions.Repository {
	return &sessionRepo{s: s, h: asHandle(db)}
}

func (s *Store) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return &resetRepo{s: s, h: asHandle(db)}
}

func asHandle(db dbx.DBTX) handle {
	h, _ := db.(handle)
	return h
}

// do runs fn against the tables, taking the store lock unless the handle
// belongs to a running transaction.
func (s *Store) do(ctx context.Context, h handle, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !h.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(&s.t)
}

// Counts returns the number of pin, login session and reset token records
// held for userID.
func (s *Store) Counts(userID string) (pins, sessions, resets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.pins[userID]; ok {
		pins = 1
	}
	if _, ok := s.t.sessions[userID]; ok {
		sessions = 1
	}
	if _, ok := s.t.resets[userID]; ok {
		resets = 1
	}
	return pins, sessions, resets
}

// ResetToken returns the stored reset token of userID.
func (s *Store) ResetToken(userID string) (models.PasswordResetToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.resets[userID]
	return r, ok
}
