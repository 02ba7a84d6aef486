package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the persistence interface for settings documents
type Store interface {
	Get(ctx context.Context, tenantID string, category Category) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

// DiffStore is the persistence interface for change diff rows
type DiffStore interface {
	Insert(ctx context.Context, diff *ChangeDiff) error
	List(ctx context.Context, tenantID string, category Category, limit int) ([]*ChangeDiff, error)
}

// SQLStore persists settings and change diffs in PostgreSQL
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the store and its tables
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &SQLStore{db: db}
	if err := store.ensureTables(); err != nil {
		return nil, fmt.Errorf("failed to ensure settings tables: %w", err)
	}
	return store, nil
}

func (s *SQLStore) ensureTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id VARCHAR(64) NOT NULL,
		category VARCHAR(50) NOT NULL,
		data JSONB NOT NULL,
		updated_by VARCHAR(64),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, category)
	);

	CREATE TABLE IF NOT EXISTS setting_change_diffs (
		id BIGSERIAL PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		category VARCHAR(50) NOT NULL,
		resource VARCHAR(255) NOT NULL,
		user_id VARCHAR(64),
		before JSONB,
		after JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_setting_change_diffs_tenant ON setting_change_diffs(tenant_id, category, created_at DESC);
	`

	_, err := s.db.Exec(query)
	return err
}

// Get returns one tenant's document for a category, ErrNotFound when none
// exists
func (s *SQLStore) Get(ctx context.Context, tenantID string, category Category) (*Settings, error) {
	query := `
		SELECT data, updated_by, updated_at
		FROM tenant_settings
		WHERE tenant_id = $1 AND category = $2
	`

	var dataJSON []byte
	var updatedBy sql.NullString
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx, query, tenantID, category).Scan(&dataJSON, &updatedBy, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := &Settings{
		TenantID:  tenantID,
		Category:  category,
		UpdatedBy: updatedBy.String,
		UpdatedAt: updatedAt,
	}
	if err := json.Unmarshal(dataJSON, &settings.Data); err != nil {
		return nil, fmt.Errorf("failed to decode settings data: %w", err)
	}
	return settings, nil
}

// Upsert writes the document, replacing any previous version
func (s *SQLStore) Upsert(ctx context.Context, settings *Settings) error {
	dataJSON, err := json.Marshal(settings.Data)
	if err != nil {
		return fmt.Errorf("failed to encode settings data: %w", err)
	}

	query := `
		INSERT INTO tenant_settings (tenant_id, category, data, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, category) DO UPDATE SET
			data = EXCLUDED.data,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, query,
		settings.TenantID, settings.Category, dataJSON, settings.UpdatedBy, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

// Insert appends one change diff row
func (s *SQLStore) Insert(ctx context.Context, diff *ChangeDiff) error {
	var beforeJSON []byte
	var err error

	if diff.Before != nil {
		beforeJSON, err = json.Marshal(diff.Before)
		if err != nil {
			return fmt.Errorf("failed to encode before snapshot: %w", err)
		}
	}

	afterJSON, err := json.Marshal(diff.After)
	if err != nil {
		return fmt.Errorf("failed to encode after snapshot: %w", err)
	}

	if diff.CreatedAt.IsZero() {
		diff.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO setting_change_diffs (tenant_id, category, resource, user_id, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		diff.TenantID, diff.Category, diff.Resource, diff.UserID, beforeJSON, afterJSON, diff.CreatedAt,
	).Scan(&diff.ID)
	if err != nil {
		return fmt.Errorf("failed to insert change diff: %w", err)
	}
	return nil
}

// List returns a tenant's most recent change diffs for a category
func (s *SQLStore) List(ctx context.Context, tenantID string, category Category, limit int) ([]*ChangeDiff, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, category, resource, user_id, before, after, created_at
		FROM setting_change_diffs
		WHERE tenant_id = $1 AND category = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list change diffs: %w", err)
	}
	defer rows.Close()

	diffs := make([]*ChangeDiff, 0)
	for rows.Next() {
		diff := &ChangeDiff{}
		var userID sql.NullString
		var beforeJSON, afterJSON []byte

		err := rows.Scan(
			&diff.ID, &diff.TenantID, &diff.Category, &diff.Resource,
			&userID, &beforeJSON, &afterJSON, &diff.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change diff: %w", err)
		}

		diff.UserID = userID.String
		if len(beforeJSON) > 0 {
			if err := json.Unmarshal(beforeJSON, &diff.Before); err != nil {
				return nil, fmt.Errorf("failed to decode before snapshot: %w", err)
			}
		}
		if err := json.Unmarshal(afterJSON, &diff.After); err != nil {
			return nil, fmt.Errorf("failed to decode after snapshot: %w", err)
		}

		diffs = append(diffs, diff)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change diffs: %w", err)
	}
	return diffs, nil
}
