package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/warden/pkg/tenant"
)

type fakeStore struct {
	docs      map[string]*Settings
	getErr    error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*Settings)}
}

func (s *fakeStore) key(tenantID string, category Category) string {
	return tenantID + "/" + string(category)
}

func (s *fakeStore) Get(_ context.Context, tenantID string, category Category) (*Settings, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	doc, ok := s.docs[s.key(tenantID, category)]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *fakeStore) Upsert(_ context.Context, settings *Settings) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.docs[s.key(settings.TenantID, settings.Category)] = settings
	return nil
}

func adminContext() *tenant.Context {
	return &tenant.Context{
		TenantID:  "tenant-1",
		UserID:    "user-1",
		Role:      tenant.RoleAdmin,
		RequestID: "req-1",
	}
}

func TestService_Get(t *testing.T) {
	t.Run("missing document returns empty settings", func(t *testing.T) {
		service := NewService(newFakeStore(), newTestRecorder(&fakeDiffStore{}, &fakeAuditLogger{}))

		settings, err := service.Get(context.Background(), "tenant-1", CategoryBooking)
		require.NoError(t, err)
		assert.NotNil(t, settings.Data)
		assert.Empty(t, settings.Data)
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		service := NewService(newFakeStore(), newTestRecorder(&fakeDiffStore{}, &fakeAuditLogger{}))

		_, err := service.Get(context.Background(), "tenant-1", Category("bogus"))
		assert.Error(t, err)
	})
}

func TestService_Update(t *testing.T) {
	t.Run("first write records a nil before", func(t *testing.T) {
		store := newFakeStore()
		diffs := &fakeDiffStore{}
		auditor := &fakeAuditLogger{}
		service := NewService(store, newTestRecorder(diffs, auditor))

		data := map[string]interface{}{"currency": "USD", "tax": 19}
		updated, err := service.Update(context.Background(), adminContext(), CategoryFinancial, data, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, data, updated.Data)
		assert.Equal(t, "user-1", updated.UpdatedBy)

		require.Len(t, diffs.inserts, 1)
		assert.Nil(t, diffs.inserts[0].Before)
		assert.Equal(t, data, diffs.inserts[0].After)

		require.Len(t, auditor.events, 1)
		assert.Equal(t, []string{"currency", "tax"}, auditor.events[0].Details["changed_fields"])
	})

	t.Run("subsequent write carries the previous snapshot", func(t *testing.T) {
		store := newFakeStore()
		diffs := &fakeDiffStore{}
		service := NewService(store, newTestRecorder(diffs, &fakeAuditLogger{}))

		tc := adminContext()
		_, err := service.Update(context.Background(), tc, CategoryFinancial,
			map[string]interface{}{"currency": "EUR"}, RequestMeta{})
		require.NoError(t, err)

		_, err = service.Update(context.Background(), tc, CategoryFinancial,
			map[string]interface{}{"currency": "USD"}, RequestMeta{})
		require.NoError(t, err)

		require.Len(t, diffs.inserts, 2)
		assert.Equal(t, map[string]interface{}{"currency": "EUR"}, diffs.inserts[1].Before)
		assert.Equal(t, map[string]interface{}{"currency": "USD"}, diffs.inserts[1].After)
	})

	t.Run("failed primary write records nothing", func(t *testing.T) {
		store := newFakeStore()
		store.upsertErr = errors.New("db down")
		diffs := &fakeDiffStore{}
		auditor := &fakeAuditLogger{}
		service := NewService(store, newTestRecorder(diffs, auditor))

		_, err := service.Update(context.Background(), adminContext(), CategoryFinancial,
			map[string]interface{}{"currency": "USD"}, RequestMeta{})
		assert.Error(t, err)
		assert.Empty(t, diffs.inserts, "recorder must not run before the mutation commits")
		assert.Empty(t, auditor.events)
	})

	t.Run("recorder failure never fails the update", func(t *testing.T) {
		store := newFakeStore()
		diffs := &fakeDiffStore{err: errors.New("diff sink down")}
		auditor := &fakeAuditLogger{err: errors.New("audit sink down")}
		service := NewService(store, newTestRecorder(diffs, auditor))

		updated, err := service.Update(context.Background(), adminContext(), CategoryFinancial,
			map[string]interface{}{"currency": "USD"}, RequestMeta{})
		require.NoError(t, err)
		assert.NotNil(t, updated)
	})

	t.Run("unknown category rejected before any write", func(t *testing.T) {
		store := newFakeStore()
		diffs := &fakeDiffStore{}
		service := NewService(store, newTestRecorder(diffs, &fakeAuditLogger{}))

		_, err := service.Update(context.Background(), adminContext(), Category("bogus"), nil, RequestMeta{})
		assert.Error(t, err)
		assert.Empty(t, store.docs)
		assert.Empty(t, diffs.inserts)
	})
}
