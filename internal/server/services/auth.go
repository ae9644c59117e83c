package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/cryptox"
	"github.com/dmitrijs2005/hourbank/internal/dbx"
	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/auth"
	"github.com/dmitrijs2005/hourbank/internal/server/mail"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/repomanager"
)

// AttemptLimiter throttles failed PIN checks per user.
type AttemptLimiter interface {
	Check(ctx context.Context, userID string) error
	RecordFailure(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}

// LoginResult is the outcome of the password phase. DevPin is only set when
// the PIN could not have reached the user by mail.
type LoginResult struct {
	Token  string
	DevPin string
}

// SessionResult is the outcome of a successful PIN check.
type SessionResult struct {
	SessionToken string
	User         models.Profile
}

type AuthService struct {
	core
	codec     *auth.Codec
	notifier  mail.Notifier
	limiter   AttemptLimiter
	dummyHash string
}

type AuthOption func(*AuthService)

// WithAttemptLimiter enables PIN attempt throttling.
func WithAttemptLimiter(l AttemptLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithClock overrides the service clock, used for expiry checks and timestamps.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(pool dbx.Pool, m repomanager.RepositoryManager, codec *auth.Codec, notifier mail.Notifier,
	log logging.Logger, opts Options, options ...AuthOption) *AuthService {

	s := &AuthService{
		core:      newCore(pool, m, log.With("module", "auth_service"), opts),
		codec:     codec,
		notifier:  notifier,
		dummyHash: cryptox.DummyHash(opts.BcryptCost),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Register creates an active account. The caller still has to log in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the password, replaces the user's PIN and login session and
// mails the new PIN. The returned token only authorizes PIN verification.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	users := s.repomanager.Users(s.pool.Conn())
	user, err := users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.ComparePassword(s.dummyHash, in.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "get user", err)
	}

	ok, err := cryptox.ComparePassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, s.internal(ctx, "compare password", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	pin, err := common.GeneratePIN()
	if err != nil {
		return nil, s.internal(ctx, "generate pin", err)
	}
	token, err := s.codec.IssueLoginToken(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(ctx, "issue login token", err)
	}

	now := s.now()
	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return err
		}

		pins := s.repomanager.Pins(tx)
		if err := pins.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		sessions := s.repomanager.LoginSessions(tx)
		if _, err := sessions.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}

		if _, err := pins.Create(ctx, &models.PinVerification{
			UserID:    user.ID,
			PinCode:   pin,
			ExpiresAt: now.Add(s.opts.PinTTL),
		}); err != nil {
			return err
		}
		_, err := sessions.Create(ctx, &models.LoginSession{
			UserID:       user.ID,
			LoginToken:   token,
			ExpiresAt:    now.Add(s.opts.SessionTTL),
			LastActivity: now,
		})
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, "store login attempt", err)
	}

	if err := s.notifier.SendPin(ctx, user.Email, pin, user.Name); err != nil {
		s.log.Error(ctx, "pin delivery failed", "user_id", user.ID, "error", err)
		return nil, deliveryError(err)
	}

	res := &LoginResult{Token: token}
	if s.opts.DevMode && !s.notifier.Delivers() {
		res.DevPin = pin
	}
	s.log.Info(ctx, "pin issued", "user_id", user.ID)
	return res, nil
}

// VerifyPin consumes the PIN and promotes the login session to a verified
// session carrying the returned session token.
func (s *AuthService) VerifyPin(ctx context.Context, loginToken string, in VerifyPinInput) (*SessionResult, error) {
	claims, err := s.codec.Verify(loginToken, auth.KindLogin)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Email != normalizeEmail(claims.Email) {
		return nil, common.ErrInvalidToken
	}

	if err := s.checkAttempts(ctx, claims.UserID); err != nil {
		return nil, err
	}

	conn := s.pool.Conn()
	pin, err := s.repomanager.Pins(conn).FindUnused(ctx, claims.UserID, in.Pin)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.recordFailure(ctx, claims.UserID)
			return nil, common.ErrInvalidPin
		}
		return nil, s.internal(ctx, "find pin", err)
	}

	now := s.now()
	if pin.Expired(now) {
		return nil, common.ErrPinExpired
	}

	user, err := s.repomanager.Users(conn).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "get user", err)
	}
	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	sessionToken, err := s.codec.IssueSessionToken(user.ID, user.Email, s.opts.SessionTTL)
	if err != nil {
		return nil, s.internal(ctx, "issue session token", err)
	}

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		used, err := s.repomanager.Pins(tx).MarkUsed(ctx, pin.ID, now)
		if err != nil {
			return err
		}
		if !used {
			return common.ErrInvalidPin
		}

		promoted, err := s.repomanager.LoginSessions(tx).Promote(ctx, user.ID, sessionToken, now)
		if err != nil {
			return err
		}
		if !promoted {
			return common.ErrSessionInvalid
		}

		return s.repomanager.Users(tx).TouchLastLogin(ctx, user.ID, now)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidPin) || errors.Is(err, common.ErrSessionInvalid) {
			return nil, err
		}
		return nil, s.internal(ctx, "promote session", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, user.ID); err != nil {
			s.log.Warn(ctx, "pin attempt reset failed", "user_id", user.ID, "error", err)
		}
	}

	s.log.Info(ctx, "session established", "user_id", user.ID)
	return &SessionResult{SessionToken: sessionToken, User: user.Profile()}, nil
}

// ResendPin replaces the PIN of a pending login and mails the new one.
func (s *AuthService) ResendPin(ctx context.Context, loginToken string, in ResendPinInput) (*LoginResult, error) {
	claims, err := s.codec.Verify(loginToken, auth.KindLogin)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.pool.Conn()).GetByIDAndEmail(ctx, claims.UserID, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "get user", err)
	}
	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	pin, err := common.GeneratePIN()
	if err != nil {
		return nil, s.internal(ctx, "generate pin", err)
	}

	now := s.now()
	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return err
		}
		pins := s.repomanager.Pins(tx)
		if err := pins.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		_, err := pins.Create(ctx, &models.PinVerification{
			UserID:    user.ID,
			PinCode:   pin,
			ExpiresAt: now.Add(s.opts.PinTTL),
		})
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, "replace pin", err)
	}

	if err := s.notifier.SendPin(ctx, user.Email, pin, user.Name); err != nil {
		s.log.Error(ctx, "pin delivery failed", "user_id", user.ID, "error", err)
		return nil, deliveryError(err)
	}

	res := &LoginResult{}
	if s.opts.DevMode && !s.notifier.Delivers() {
		res.DevPin = pin
	}
	return res, nil
}

// VerifySession confirms that sessionToken is the user's current verified
// session and records activity on it.
func (s *AuthService) VerifySession(ctx context.Context, sessionToken string) (*models.Profile, error) {
	claims, err := s.codec.Verify(sessionToken, auth.KindSession)
	if err != nil {
		return nil, err
	}

	conn := s.pool.Conn()
	now := s.now()
	session, err := s.repomanager.LoginSessions(conn).FindVerified(ctx, claims.UserID, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		return nil, s.internal(ctx, "find session", err)
	}
	// a token from an older session of the same user is not accepted
	if session.SessionToken == nil || subtle.ConstantTimeCompare([]byte(*session.SessionToken), []byte(sessionToken)) != 1 {
		return nil, common.ErrSessionInvalid
	}

	user, err := s.repomanager.Users(conn).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		return nil, s.internal(ctx, "get user", err)
	}

	if err := s.repomanager.LoginSessions(conn).Touch(ctx, user.ID, now); err != nil {
		return nil, s.internal(ctx, "touch session", err)
	}

	p := user.Profile()
	return &p, nil
}

// Logout removes every login session of the token's user. It succeeds even
// when there was nothing to remove.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	claims, err := s.codec.Verify(sessionToken, auth.KindSession)
	if err != nil {
		return err
	}

	n, err := s.repomanager.LoginSessions(s.pool.Conn()).DeleteByUser(ctx, claims.UserID)
	if err != nil {
		return s.internal(ctx, "delete sessions", err)
	}
	s.log.Info(ctx, "logged out", "user_id", claims.UserID, "sessions", n)
	return nil
}

// ForgotPassword issues a reset token for an active account and mails the
// link. The result does not reveal whether the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.pool.Conn()).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.internal(ctx, "get user", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := common.MakeRandHexString(common.ResetTokenBytes)
	if err != nil {
		return s.internal(ctx, "generate reset token", err)
	}

	now := s.now()
	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return err
		}
		resets := s.repomanager.ResetTokens(tx)
		if err := resets.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		_, err := resets.Create(ctx, &models.PasswordResetToken{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: now.Add(s.opts.ResetTokenTTL),
		})
		return err
	})
	if err != nil {
		return s.internal(ctx, "store reset token", err)
	}

	if err := s.notifier.SendReset(ctx, user.Email, token, user.Name); err != nil {
		s.log.Error(ctx, "reset delivery failed", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *AuthService) checkAttempts(ctx context.Context, userID string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, userID)
	if err == nil || errors.Is(err, common.ErrTooManyAttempts) {
		return err
	}
	s.log.Warn(ctx, "pin attempt check failed", "user_id", userID, "error", err)
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, userID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, userID); err != nil && !errors.Is(err, common.ErrTooManyAttempts) {
		s.log.Warn(ctx, "pin attempt record failed", "user_id", userID, "error", err)
	}
}

func deliveryError(err error) error {
	if errors.Is(err, common.ErrMailDelivery) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrMailDelivery, err)
}
