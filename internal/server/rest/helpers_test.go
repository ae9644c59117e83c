package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// fakeAuth answers with whatever the test configured and remembers the
// last token it was given.
type fakeAuth struct {
	err       error
	login     *services.LoginResult
	session   *services.SessionResult
	profile   *models.Profile
	lastToken string
	lastLogin services.LoginInput
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u1", Email: in.Email, Name: in.Name}, nil
}

func (f *fakeAuth) Login(_ context.Context, in services.LoginInput) (*services.LoginResult, error) {
	f.lastLogin = in
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func (f *fakeAuth) VerifyPin(_ context.Context, token string, _ services.VerifyPinInput) (*services.SessionResult, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAuth) ResendPin(_ context.Context, token string, _ services.ResendPinInput) (*services.LoginResult, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return &services.LoginResult{}, nil
}

func (f *fakeAuth) VerifySession(_ context.Context, token string) (*models.Profile, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.lastToken = token
	return f.err
}

func (f *fakeAuth) ForgotPassword(context.Context, services.ForgotPasswordInput) error {
	return f.err
}

type response struct {
	status int
	body   map[string]any
	header http.Header
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, token string) response {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), "body: %s", raw)
	}
	return out
}
