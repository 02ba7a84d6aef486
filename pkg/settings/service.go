package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakline/warden/pkg/tenant"
)

// RequestMeta carries request attribution into the recorded change
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service applies settings mutations and feeds the recorder
type Service struct {
	store    Store
	recorder *Recorder
}

// NewService creates a settings service
func NewService(store Store, recorder *Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// Get returns a tenant's document for a category. A tenant that has never
// written the category gets an empty document rather than an error.
func (s *Service) Get(ctx context.Context, tenantID string, category Category) (*Settings, error) {
	if _, ok := LookupCategory(category); !ok {
		return nil, fmt.Errorf("unknown settings category: %s", category)
	}

	current, err := s.store.Get(ctx, tenantID, category)
	if errors.Is(err, ErrNotFound) {
		return &Settings{
			TenantID: tenantID,
			Category: category,
			Data:     map[string]interface{}{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

// Update replaces the document and records the change. The recorder runs
// only after the write has committed; its failures never propagate.
func (s *Service) Update(ctx context.Context, tc *tenant.Context, category Category, data map[string]interface{}, meta RequestMeta) (*Settings, error) {
	if _, ok := LookupCategory(category); !ok {
		return nil, fmt.Errorf("unknown settings category: %s", category)
	}

	// Snapshot the previous version for the diff. A missing document is a
	// first-time creation: the recorder sees a nil before.
	var before map[string]interface{}
	if current, err := s.store.Get(ctx, tc.TenantID, category); err == nil {
		before = current.Data
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	updated := &Settings{
		TenantID:  tc.TenantID,
		Category:  category,
		Data:      data,
		UpdatedBy: tc.UserID,
	}
	if err := s.store.Upsert(ctx, updated); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, Change{
		TenantID:  tc.TenantID,
		Category:  category,
		Resource:  "settings/" + string(category),
		UserID:    tc.UserID,
		Role:      string(tc.Role),
		Before:    before,
		After:     data,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		RequestID: tc.RequestID,
	})

	return updated, nil
}
