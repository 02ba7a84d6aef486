package stepup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SecretStore persists per-user TOTP secrets. GetSecret returns an empty
// secret, not an error, for users who never enrolled.
type SecretStore interface {
	GetSecret(ctx context.Context, tenantID, userID string) (string, error)
	SaveSecret(ctx context.Context, tenantID, userID, secret string) error
}

// SQLSecretStore stores TOTP secrets in PostgreSQL
type SQLSecretStore struct {
	db *sql.DB
}

// NewSQLSecretStore creates the secret store and its table
func NewSQLSecretStore(db *sql.DB) (*SQLSecretStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &SQLSecretStore{db: db}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure stepup_secrets table: %w", err)
	}
	return store, nil
}

func (s *SQLSecretStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS stepup_secrets (
		tenant_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		secret TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (tenant_id, user_id)
	)`
	_, err := s.db.Exec(query)
	return err
}

// GetSecret implements SecretStore
func (s *SQLSecretStore) GetSecret(ctx context.Context, tenantID, userID string) (string, error) {
	var secret string
	err := s.db.QueryRowContext(ctx,
		`SELECT secret FROM stepup_secrets WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load step-up secret: %w", err)
	}
	return secret, nil
}

// SaveSecret implements SecretStore. Re-enrolling replaces the secret,
// which invalidates any authenticator provisioned from the old one.
func (s *SQLSecretStore) SaveSecret(ctx context.Context, tenantID, userID, secret string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stepup_secrets (tenant_id, user_id, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at`,
		tenantID, userID, secret, now)
	if err != nil {
		return fmt.Errorf("failed to save step-up secret: %w", err)
	}
	return nil
}
