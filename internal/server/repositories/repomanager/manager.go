package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/loginsessions"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/pins"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on a pooled connection and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Pins(db dbx.DBTX) pins.Repository
	LoginSessions(db dbx.DBTX) loginsessions.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
