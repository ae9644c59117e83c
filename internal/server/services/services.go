// Package services contains server-side business logic: the two-phase login
// workflow (AuthService) and account administration (AdminService).
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/cryptox"
	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/config"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/repomanager"
)

// Options are the workflow settings taken from config.Config.
type Options struct {
	SessionTTL          time.Duration
	PinTTL              time.Duration
	ResetTokenTTL       time.Duration
	BcryptCost          int
	InstitutionalDomain string
	DevMode             bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SessionTTL:          cfg.SessionTTL,
		PinTTL:              cfg.PinTTL,
		ResetTokenTTL:       cfg.ResetTokenTTL,
		BcryptCost:          cfg.BcryptCost,
		InstitutionalDomain: cfg.InstitutionalDomain,
		DevMode:             cfg.DevMode,
	}
}

// core is the state shared by AuthService and AdminService.
type core struct {
	pool        dbx.Pool
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	opts        Options
	validate    *inputValidator
	now         func() time.Time
}

func newCore(pool dbx.Pool, rm repomanager.RepositoryManager, log logging.Logger, opts Options) core {
	return core{
		pool:        pool,
		repomanager: rm,
		log:         log,
		opts:        opts,
		validate:    newInputValidator(opts.InstitutionalDomain),
		now:         time.Now,
	}
}

// internal logs a dependency failure and hides it behind common.ErrorInternal.
// Only the cause's text is kept, for dev-mode responses; its sentinels are not.
func (c *core) internal(ctx context.Context, op string, err error) error {
	c.log.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}

// createUser validates, hashes and stores a new active user.
func (c *core) createUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := c.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password, c.opts.BcryptCost)
	if err != nil {
		return nil, c.internal(ctx, "hash password", err)
	}

	user, err := c.repomanager.Users(c.pool.Conn()).Create(ctx, &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, c.internal(ctx, "create user", err)
	}
	return user, nil
}
