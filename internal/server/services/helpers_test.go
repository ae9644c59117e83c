package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/auth"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "a@pascualbravo.edu.co"
	testName     = "Ana Pérez"
	testPassword = "Secreta123"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	email, secret, name string
}

type fakeNotifier struct {
	mu       sync.Mutex
	delivers bool
	err      error
	pins     []sentMail
	resets   []sentMail
}

func (n *fakeNotifier) SendPin(_ context.Context, email, pin, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pins = append(n.pins, sentMail{email, pin, name})
	return nil
}

func (n *fakeNotifier) SendReset(_ context.Context, email, token, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.resets = append(n.resets, sentMail{email, token, name})
	return nil
}

func (n *fakeNotifier) Delivers() bool {
	return n.delivers
}

func (n *fakeNotifier) lastPin(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.pins, "no pin was sent")
	return n.pins[len(n.pins)-1].secret
}

var errSMTPDown = errors.New("smtp down")

type testEnv struct {
	store    *memory.Store
	clock    *fakeClock
	notifier *fakeNotifier
	auth     *AuthService
	admin    *AdminService
	opts     Options
}

func testOptions() Options {
	return Options{
		SessionTTL:          24 * time.Hour,
		PinTTL:              10 * time.Minute,
		ResetTokenTTL:       time.Hour,
		BcryptCost:          bcrypt.MinCost,
		InstitutionalDomain: "pascualbravo.edu.co",
	}
}

func newTestEnv(t *testing.T, opts Options, options ...AuthOption) *testEnv {
	t.Helper()

	clock := newFakeClock()
	codec, err := auth.NewCodec([]byte("login-secret"), []byte("session-secret"))
	require.NoError(t, err)
	codec = codec.WithClock(clock.Now)

	store := memory.New()
	notifier := &fakeNotifier{delivers: true}
	options = append([]AuthOption{WithClock(clock.Now)}, options...)

	return &testEnv{
		store:    store,
		clock:    clock,
		notifier: notifier,
		auth:     NewAuthService(store, store, codec, notifier, logging.Discard(), opts, options...),
		admin:    NewAdminService(store, store, logging.Discard(), opts),
		opts:     opts,
	}
}

func (e *testEnv) register(t *testing.T) string {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Name: testName, Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return u.ID
}

// login runs the password phase and returns the login token with the mailed
// PIN.
func (e *testEnv) login(t *testing.T) (string, string) {
	t.Helper()
	res, err := e.auth.Login(context.Background(), LoginInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return res.Token, e.notifier.lastPin(t)
}

func (e *testEnv) verify(t *testing.T) string {
	t.Helper()
	token, pin := e.login(t)
	res, err := e.auth.VerifyPin(context.Background(), token, VerifyPinInput{Email: testEmail, Pin: pin})
	require.NoError(t, err)
	return res.SessionToken
}

func wrongPin(pin string) string {
	if pin == "000000" {
		return "111111"
	}
	return "000000"
}
