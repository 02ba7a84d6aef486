package api

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestNewSQLUserStore(t *testing.T) {
	t.Run("creates table", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

		store, err := NewSQLUserStore(db)
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil database", func(t *testing.T) {
		store, err := NewSQLUserStore(nil)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestSQLUserStore_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := &SQLUserStore{db: db}

		now := time.Now().UTC()
		mock.ExpectQuery("SELECT id, tenant_id, email, password_hash, role, active").
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role", "active", "created_at"}).
				AddRow("user-1", "tenant-1", "admin@example.com", "$2a$10$hash", "ADMIN", true, now))

		user, err := store.GetByEmail(context.Background(), "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "tenant-1", user.TenantID)
		assert.Equal(t, "ADMIN", string(user.Role))
		assert.True(t, user.Active)
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := &SQLUserStore{db: db}

		mock.ExpectQuery("SELECT id, tenant_id, email, password_hash, role, active").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := &SQLUserStore{db: db}

		mock.ExpectQuery("SELECT id, tenant_id, email, password_hash, role, active").
			WillReturnError(errors.New("connection refused"))

		_, err := store.GetByEmail(context.Background(), "admin@example.com")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)
	})
}
