// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// a helper to run functions inside a transaction, and Pool, the injected
// handle services use to reach the store.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Pool is a lifetime-scoped handle to the credential store. Conn returns a
// handle for single statements; WithTx runs fn atomically.
type Pool interface {
	Conn() DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "DELETE FROM pin_verifications WHERE user_id = $1", id)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// SQLPool adapts a *sql.DB connection pool to Pool.
type SQLPool struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQLPool wraps db. opts (may be nil) is used for every transaction.
func NewSQLPool(db *sql.DB, opts *sql.TxOptions) *SQLPool {
	return &SQLPool{db: db, opts: opts}
}

func (p *SQLPool) Conn() DBTX {
	return p.db
}

func (p *SQLPool) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, p.db, p.opts, fn)
}

// DB exposes the underlying pool, e.g. for migrations and Close.
func (p *SQLPool) DB() *sql.DB {
	return p.db
}
