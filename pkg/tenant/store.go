package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store resolves tenants by slug or ID
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

// SQLStore is a Postgres-backed tenant store
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a tenant store and ensures the backing table exists
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure tenants table: %w", err)
	}
	return s, nil
}

func (s *SQLStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		slug VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_tenants_slug ON tenants(slug);
	`
	_, err := s.db.Exec(query)
	return err
}

// GetBySlug returns the tenant with the given slug
func (s *SQLStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	query := `SELECT id, slug, name, active, created_at FROM tenants WHERE slug = $1`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

// GetByID returns the tenant with the given ID
func (s *SQLStore) GetByID(ctx context.Context, id string) (*Tenant, error) {
	query := `SELECT id, slug, name, active, created_at FROM tenants WHERE id = $1`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Active, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	return &t, nil
}

// CachedStore wraps a Store with an LRU cache. Tenant rows change rarely,
// so a bounded cache keeps the default tenant lookup off the hot path.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, *Tenant]

	// optional hit/miss observers
	onHit  func()
	onMiss func()
}

// NewCachedStore wraps inner with an LRU cache of the given size
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, *Tenant](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// WithObservers registers cache hit/miss callbacks for metrics
func (s *CachedStore) WithObservers(onHit, onMiss func()) *CachedStore {
	s.onHit = onHit
	s.onMiss = onMiss
	return s
}

// GetBySlug returns the tenant with the given slug, from cache when possible
func (s *CachedStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.get(ctx, "slug:"+slug, func() (*Tenant, error) {
		return s.inner.GetBySlug(ctx, slug)
	})
}

// GetByID returns the tenant with the given ID, from cache when possible
func (s *CachedStore) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return s.get(ctx, "id:"+id, func() (*Tenant, error) {
		return s.inner.GetByID(ctx, id)
	})
}

func (s *CachedStore) get(_ context.Context, key string, load func() (*Tenant, error)) (*Tenant, error) {
	if t, ok := s.cache.Get(key); ok {
		if s.onHit != nil {
			s.onHit()
		}
		return t, nil
	}
	if s.onMiss != nil {
		s.onMiss()
	}

	t, err := load()
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, t)
	return t, nil
}

// Invalidate drops a tenant from the cache after an out-of-band change
func (s *CachedStore) Invalidate(id, slug string) {
	s.cache.Remove("id:" + id)
	s.cache.Remove("slug:" + slug)
}
