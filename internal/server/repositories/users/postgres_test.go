package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

var userColumns = []string{"id", "email", "name", "password_hash", "is_active", "last_login", "created_at"}

const (
	qInsert     = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*name,\s*password_hash,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+created_at\s*$`
	qByEmail    = `(?s)^SELECT\s+id,\s*email,\s*name,\s*password_hash,\s*is_active,\s*last_login,\s*created_at\s+FROM\s+users\s+WHERE\s+LOWER\(email\)\s*=\s*LOWER\(\$1\)\s*$`
	qByID       = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	qByIDEmail  = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+AND\s+LOWER\(email\)\s*=\s*LOWER\(\$2\)\s*$`
	qLock       = `(?s)^SELECT\s+id\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	qTouch      = `(?s)^UPDATE\s+users\s+SET\s+last_login\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`
	qSetActive  = `(?s)^UPDATE\s+users\s+SET\s+is_active\s*=\s*\$2\s+WHERE\s+LOWER\(email\)\s*=\s*LOWER\(\$1\)\s+RETURNING\s+id\s*$`
	qDeleteMail = `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+LOWER\(email\)\s*=\s*LOWER\(\$1\)\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(qInsert).
		WithArgs(sqlmock.AnyArg(), "a@pascualbravo.edu.co", "A B", "hash", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u := &models.User{Email: "a@pascualbravo.edu.co", Name: "A B", PasswordHash: "hash", IsActive: true}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Len(t, got.ID, 36)
	assert.Equal(t, created, got.CreatedAt)
}

func TestCreate_KeepsGivenID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).
		WithArgs("fixed-id", "a@pascualbravo.edu.co", "A B", "hash", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got, err := repo.Create(context.Background(), &models.User{ID: "fixed-id", Email: "a@pascualbravo.edu.co", Name: "A B", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got.ID)
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_idx"})

	_, err := repo.Create(context.Background(), &models.User{Email: "A@pascualbravo.edu.co"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@pascualbravo.edu.co"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	last := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(qByEmail).
		WithArgs("A@PascualBravo.edu.co").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@pascualbravo.edu.co", "A B", "hash", true, last, last))

	got, err := repo.GetByEmail(context.Background(), "A@PascualBravo.edu.co")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, last, *got.LastLogin)
}

func TestGetByEmail_NullLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByEmail).
		WithArgs("a@pascualbravo.edu.co").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@pascualbravo.edu.co", "A B", "hash", false, nil, time.Now()))

	got, err := repo.GetByEmail(context.Background(), "a@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Nil(t, got.LastLogin)
	assert.False(t, got.IsActive)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByEmail).WithArgs("ghost@pascualbravo.edu.co").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@pascualbravo.edu.co")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByID).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@pascualbravo.edu.co", "A B", "hash", true, nil, time.Now()))
	mock.ExpectQuery(qByID).WithArgs("u-2").WillReturnError(errors.New("db err"))

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "A B", got.Name)

	_, err = repo.GetByID(context.Background(), "u-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestGetByIDAndEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByIDEmail).WithArgs("u-1", "b@pascualbravo.edu.co").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDAndEmail(context.Background(), "u-1", "b@pascualbravo.edu.co")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLockByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qLock).WithArgs("u-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectQuery(qLock).WithArgs("u-2").WillReturnError(sql.ErrNoRows)

	require.NoError(t, repo.LockByID(context.Background(), "u-1"))
	assert.ErrorIs(t, repo.LockByID(context.Background(), "u-2"), common.ErrorNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(qTouch).WithArgs("u-1", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qTouch).WithArgs("u-1", at).WillReturnError(errors.New("boom"))

	require.NoError(t, repo.TouchLastLogin(context.Background(), "u-1", at))
	assert.Error(t, repo.TouchLastLogin(context.Background(), "u-1", at))
}

func TestSetActive(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qSetActive).WithArgs("a@pascualbravo.edu.co", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectQuery(qSetActive).WithArgs("ghost@pascualbravo.edu.co", true).
		WillReturnError(sql.ErrNoRows)

	id, err := repo.SetActive(context.Background(), "a@pascualbravo.edu.co", false)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = repo.SetActive(context.Background(), "ghost@pascualbravo.edu.co", true)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qDeleteMail).WithArgs("a@pascualbravo.edu.co").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDeleteMail).WithArgs("a@pascualbravo.edu.co").WillReturnError(errors.New("boom"))

	n, err := repo.DeleteByEmail(context.Background(), "a@pascualbravo.edu.co")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.DeleteByEmail(context.Background(), "a@pascualbravo.edu.co")
	assert.Error(t, err)
}
