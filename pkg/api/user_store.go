package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oakline/warden/pkg/tenant"
)

// ErrUserNotFound indicates no user exists for the given email
var ErrUserNotFound = errors.New("user not found")

// User is a row in the users table. The role string is carried into the
// session token verbatim; the permission engine decides what it means.
type User struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	Email        string      `json:"email"`
	Role         tenant.Role `json:"role"`
	PasswordHash string      `json:"-"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// UserStore looks up login credentials
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// SQLUserStore is a Postgres-backed user store
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates the user store and ensures the backing table
func NewSQLUserStore(db *sql.DB) (*SQLUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	s := &SQLUserStore{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure users table: %w", err)
	}
	return s, nil
}

func (s *SQLUserStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		tenant_id VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role VARCHAR(32) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_users_tenant ON users(tenant_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// GetByEmail returns the user with the given email, case-insensitively
func (s *SQLUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, password_hash, role, active, created_at
		FROM users WHERE LOWER(email) = LOWER($1)`,
		email).Scan(&user.ID, &user.TenantID, &user.Email, &user.PasswordHash,
		&user.Role, &user.Active, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
