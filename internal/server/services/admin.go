package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/repomanager"
)

// AdminService performs account maintenance on behalf of an operator.
type AdminService struct {
	core
}

func NewAdminService(pool dbx.Pool, m repomanager.RepositoryManager, log logging.Logger, opts Options) *AdminService {
	return &AdminService{core: newCore(pool, m, log.With("module", "admin_service"), opts)}
}

func (s *AdminService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// DeleteUser removes the account and, by cascade, its PIN, session and
// reset records.
func (s *AdminService) DeleteUser(ctx context.Context, email string) (int64, error) {
	n, err := s.repomanager.Users(s.pool.Conn()).DeleteByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return 0, s.internal(ctx, "delete user", err)
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}
	s.log.Info(ctx, "user deleted", "email", normalizeEmail(email))
	return n, nil
}

// SetActive flips the active flag. Deactivation also revokes every login
// session of the user.
func (s *AdminService) SetActive(ctx context.Context, email string, active bool) error {
	email = normalizeEmail(email)
	err := s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.repomanager.Users(tx).SetActive(ctx, email, active)
		if err != nil {
			return err
		}
		if active {
			return nil
		}
		_, err = s.repomanager.LoginSessions(tx).DeleteByUser(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return s.internal(ctx, "set active", err)
	}
	s.log.Info(ctx, "user active flag changed", "email", email, "active", active)
	return nil
}
