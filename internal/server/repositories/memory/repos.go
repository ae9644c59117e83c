package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/google/uuid"
)

var errForeignKey = errors.New("db error: user does not exist")

type userRepo struct {
	s *Store
	h handle
}

func (r *userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.s.do(ctx, r.h, func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, user.Email) {
				return common.ErrDuplicateEmail
			}
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		user.CreatedAt = time.Now().UTC()
		t.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) find(ctx context.Context, match func(u *models.User) bool) (*models.User, error) {
	var found *models.User
	err := r.s.do(ctx, r.h, func(t *tables) error {
		for _, u := range t.users {
			if match(&u) {
				found = &u
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return found, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id })
}

func (r *userRepo) GetByIDAndEmail(ctx context.Context, id, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id && strings.EqualFold(u.Email, email) })
}

// LockByID only checks existence; the transaction already holds the store lock.
func (r *userRepo) LockByID(ctx context.Context, id string) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.s.do(ctx, r.h, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return nil
		}
		u.LastLogin = &at
		t.users[id] = u
		return nil
	})
}

func (r *userRepo) SetActive(ctx context.Context, email string, active bool) (string, error) {
	var id string
	err := r.s.do(ctx, r.h, func(t *tables) error {
		for k, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				u.IsActive = active
				t.users[k] = u
				id = k
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return id, err
}

func (r *userRepo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := r.s.do(ctx, r.h, func(t *tables) error {
		for k, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				delete(t.users, k)
				delete(t.pins, k)
				delete(t.sessions, k)
				delete(t.resets, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type pinRepo struct {
	s *Store
	h handle
}

func (r *pinRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.s.do(ctx, r.h, func(t *tables) error {
		delete(t.pins, userID)
		return nil
	})
}

func (r *pinRepo) Create(ctx context.Context, pin *models.PinVerification) (*models.PinVerification, error) {
	err := r.s.do(ctx, r.h, func(t *tables) error {
		if _, ok := t.users[pin.UserID]; !ok {
			return errForeignKey
		}
		if _, ok := t.pins[pin.UserID]; ok {
			return errors.New("db error: duplicate key pin_verifications_user_uniq")
		}
		if pin.ID == "" {
			pin.ID = uuid.NewString()
		}
		pin.CreatedAt = time.Now().UTC()
		t.pins[pin.UserID] = *pin
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pin, nil
}

func (r *pinRepo) FindUnused(ctx context.Context, userID, code string) (*models.PinVerification, error) {
	var found *models.PinVerification
	err := r.s.do(ctx, r.h, func(t *tables) error {
		p, ok := t.pins[userID]
		if !ok || p.IsUsed || p.PinCode != code {
			return common.ErrorNotFound
		}
		found = &p
		return nil
	})
	return found, err
}

func (r *pinRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	marked := false
	err := r.s.do(ctx, r.h, func(t *tables) error {
		for k, p := range t.pins {
			if p.ID == id && !p.IsUsed {
				p.IsUsed = true
				p.UsedAt = &at
				t.pins[k] = p
				marked = true
			}
		}
		return nil
	})
	return marked, err
}

type sessionRepo struct {
	s *Store
	h handle
}

func (r *sessionRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.do(ctx, r.h, func(t *tables) error {
		if _, ok := t.sessions[userID]; ok {
			delete(t.sessions, userID)
			n = 1
		}
		return nil
	})
	return n, err
}

func (r *sessionRepo) Create(ctx context.Context, ls *models.LoginSession) (*models.LoginSession, error) {
	err := r.s.do(ctx, r.h, func(t *tables) error {
		if _, ok := t.users[ls.UserID]; !ok {
			return errForeignKey
		}
		if _, ok := t.sessions[ls.UserID]; ok {
			return errors.New("db error: duplicate key login_sessions_user_uniq")
		}
		if ls.ID == "" {
			ls.ID = uuid.NewString()
		}
		ls.CreatedAt = time.Now().UTC()
		t.sessions[ls.UserID] = *ls
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *sessionRepo) Promote(ctx context.Context, userID, sessionToken string, at time.Time) (bool, error) {
	promoted := false
	err := r.s.do(ctx, r.h, func(t *tables) error {
		ls, ok := t.sessions[userID]
		if !ok {
			return nil
		}
		tok := sessionToken
		ls.SessionToken = &tok
		ls.IsPinVerified = true
		ls.LastActivity = at
		t.sessions[userID] = ls
		promoted = true
		return nil
	})
	return promoted, err
}

func (r *sessionRepo) FindVerified(ctx context.Context, userID string, now time.Time) (*models.LoginSession, error) {
	var found *models.LoginSession
	err := r.s.do(ctx, r.h, func(t *tables) error {
		ls, ok := t.sessions[userID]
		if !ok || ls.SessionToken == nil || !ls.IsPinVerified || !ls.ExpiresAt.After(now) {
			return common.ErrorNotFound
		}
		found = &ls
		return nil
	})
	return found, err
}

func (r *sessionRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	return r.s.do(ctx, r.h, func(t *tables) error {
		if ls, ok := t.sessions[userID]; ok {
			ls.LastActivity = at
			t.sessions[userID] = ls
		}
		return nil
	})
}

type resetRepo struct {
	s *Store
	h handle
}

func (r *resetRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.s.do(ctx, r.h, func(t *tables) error {
		delete(t.resets, userID)
		return nil
	})
}

func (r *resetRepo) Create(ctx context.Context, rt *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	err := r.s.do(ctx, r.h, func(t *tables) error {
		if _, ok := t.users[rt.UserID]; !ok {
			return errForeignKey
		}
		if _, ok := t.resets[rt.UserID]; ok {
			return errors.New("db error: duplicate key password_reset_tokens_user_uniq")
		}
		if rt.ID == "" {
			rt.ID = uuid.NewString()
		}
		rt.CreatedAt = time.Now().UTC()
		t.resets[rt.UserID] = *rt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}
