package admincli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/hourbank/internal/server"
	"github.com/dmitrijs2005/hourbank/internal/server/config"
	"github.com/dmitrijs2005/hourbank/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *memory.Store) {
	t.Helper()
	t.Setenv("HOURBANK_BCRYPT_COST", "4")

	store := memory.New()
	a := New()
	a.openStore = func(context.Context, *config.Config, bool) (*server.Store, error) {
		return &server.Store{Pool: store, Manager: store}, nil
	}
	a.readPassword = func(int) ([]byte, error) {
		return []byte("password123"), nil
	}
	return a, store
}

func run(a *App, args ...string) (string, error) {
	cmd := a.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserCreate(t *testing.T) {
	a, store := newTestApp(t)

	out, err := run(a, "user", "create", "Estudiante@pascualbravo.edu.co", "Juan Pérez")
	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "User created")
	assert.Contains(t, out, "estudiante@pascualbravo.edu.co")

	u, err := store.Users(store.Conn()).GetByEmail(context.Background(), "estudiante@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", u.Name)
	assert.True(t, u.IsActive)

	_, err = run(a, "user", "create", "estudiante@pascualbravo.edu.co", "Otro", "-p", "password123")
	require.EqualError(t, err, "email already registered")
}

func TestUserCreate_Invalid(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := run(a, "user", "create", "juan@gmail.com", "Juan", "--password", "password123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input: email")

	_, err = run(a, "user", "create", "juan@pascualbravo.edu.co")
	require.Error(t, err)
}

func TestUserCreate_PromptFailure(t *testing.T) {
	a, _ := newTestApp(t)
	a.readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }

	_, err := run(a, "user", "create", "juan@pascualbravo.edu.co", "Juan")
	require.ErrorContains(t, err, "not a terminal")
}

func TestUserActivateDeactivateDelete(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()

	_, err := run(a, "user", "create", "juan@pascualbravo.edu.co", "Juan", "-p", "password123")
	require.NoError(t, err)

	out, err := run(a, "user", "deactivate", "JUAN@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Contains(t, out, "juan@pascualbravo.edu.co: deactivated")

	u, err := store.Users(store.Conn()).GetByEmail(ctx, "juan@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	out, err = run(a, "user", "activate", "juan@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Contains(t, out, "activated")

	out, err = run(a, "user", "delete", "juan@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Contains(t, out, "Users deleted: 1")

	_, err = run(a, "user", "delete", "juan@pascualbravo.edu.co")
	require.EqualError(t, err, "user not found")

	_, err = run(a, "user", "activate", "juan@pascualbravo.edu.co")
	require.EqualError(t, err, "user not found")
}

func TestStoreOpenFailure(t *testing.T) {
	a, _ := newTestApp(t)
	a.openStore = func(context.Context, *config.Config, bool) (*server.Store, error) {
		return nil, errors.New("db connect error: refused")
	}

	_, err := run(a, "user", "delete", "juan@pascualbravo.edu.co")
	require.ErrorContains(t, err, "db connect error")
}

func TestMigrate_MemoryStore(t *testing.T) {
	a, _ := newTestApp(t)

	out, err := run(a, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","timestamp":"2025-03-10T12:00:00.000Z","service":"Banco de Horas API"}`))
	}))
	defer srv.Close()

	a, _ := newTestApp(t)
	out, err := run(a, "health", "--url", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "Status    : OK")
	assert.Contains(t, out, "Service   : Banco de Horas API")
}

func TestHealth_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Demasiadas solicitudes"}`))
	}))
	defer srv.Close()

	a, _ := newTestApp(t)
	_, err := run(a, "health", "--url", srv.URL)
	require.EqualError(t, err, "health check failed: Demasiadas solicitudes")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:3000", baseURL(":3000"))
	assert.Equal(t, "http://127.0.0.1:8080", baseURL("127.0.0.1:8080"))
}
