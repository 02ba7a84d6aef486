package stepup

import (
	"context"
	"sync"
	"time"
)

// GrantStore holds short-lived step-up state (verification grants and
// pending challenges) keyed by tenant and user. Entries expire on their
// own; a missing entry always means "not verified".
type GrantStore interface {
	// Put stores a key with the given TTL, replacing any existing entry
	Put(ctx context.Context, key string, ttl time.Duration) error

	// Valid reports whether the key exists and has not expired
	Valid(ctx context.Context, key string) (bool, error)

	// Revoke removes the key. Revoking a missing key is not an error.
	Revoke(ctx context.Context, key string) error
}

// MemoryGrantStore is a process-local grant store. Grants are lost on
// restart, which fails closed: the user is simply challenged again.
type MemoryGrantStore struct {
	mu      sync.Mutex
	entries map[string]time.Time

	now func() time.Time
}

// NewMemoryGrantStore creates an empty in-memory grant store
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Put stores a key expiring after ttl
func (s *MemoryGrantStore) Put(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	return nil
}

// Valid reports whether the key exists and has not expired. Expired
// entries are removed on read.
func (s *MemoryGrantStore) Valid(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiry) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// Revoke removes the key
func (s *MemoryGrantStore) Revoke(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not
func (s *MemoryGrantStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
