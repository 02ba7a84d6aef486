package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewSQLStore(db)
	require.NoError(t, err)
	return store, mock
}

func tenantRows(id, slug string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "slug", "name", "active", "created_at"}).
		AddRow(id, slug, "Acme Accounting", active, time.Now())
}

func TestSQLStore_GetBySlug(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, slug, name, active, created_at FROM tenants WHERE slug").
		WithArgs("acme").
		WillReturnRows(tenantRows("tnt_1", "acme", true))

	tn, err := store.GetBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "tnt_1", tn.ID)
	assert.Equal(t, "acme", tn.Slug)
	assert.True(t, tn.Active)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetBySlug_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, slug, name, active, created_at FROM tenants WHERE slug").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "active", "created_at"}))

	_, err := store.GetBySlug(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestSQLStore_GetByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, slug, name, active, created_at FROM tenants WHERE id").
		WithArgs("tnt_1").
		WillReturnRows(tenantRows("tnt_1", "acme", true))

	tn, err := store.GetByID(context.Background(), "tnt_1")
	require.NoError(t, err)
	assert.Equal(t, "acme", tn.Slug)
}

type countingStore struct {
	calls   int
	tenants map[string]*Tenant
}

func (s *countingStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	s.calls++
	if t, ok := s.tenants["slug:"+slug]; ok {
		return t, nil
	}
	return nil, ErrTenantNotFound
}

func (s *countingStore) GetByID(_ context.Context, id string) (*Tenant, error) {
	s.calls++
	if t, ok := s.tenants["id:"+id]; ok {
		return t, nil
	}
	return nil, ErrTenantNotFound
}

func TestCachedStore(t *testing.T) {
	inner := &countingStore{tenants: map[string]*Tenant{
		"slug:acme": {ID: "tnt_1", Slug: "acme", Active: true},
		"id:tnt_1":  {ID: "tnt_1", Slug: "acme", Active: true},
	}}

	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	var hits, misses int
	cached.WithObservers(func() { hits++ }, func() { misses++ })

	t.Run("second lookup served from cache", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			tn, err := cached.GetBySlug(context.Background(), "acme")
			require.NoError(t, err)
			assert.Equal(t, "tnt_1", tn.ID)
		}
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, 2, hits)
		assert.Equal(t, 1, misses)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		before := inner.calls
		for i := 0; i < 2; i++ {
			_, err := cached.GetBySlug(context.Background(), "ghost")
			assert.ErrorIs(t, err, ErrTenantNotFound)
		}
		assert.Equal(t, before+2, inner.calls)
	})

	t.Run("invalidate drops cached entry", func(t *testing.T) {
		before := inner.calls
		cached.Invalidate("tnt_1", "acme")
		_, err := cached.GetBySlug(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, before+1, inner.calls)
	})
}
