package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store holds fixed-window counters keyed by identifier
type Store interface {
	// Take attempts to consume one unit from the window for key. It
	// returns the count after this call and the window's reset time.
	// When the counter has already reached limit, it is left unchanged
	// and allowed is false, so repeated rejected calls never extend the
	// lockout.
	Take(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, count int, resetTime time.Time, err error)

	// Sweep purges entries whose window has passed and returns how many
	// were removed. Expired entries are also reset lazily on the next
	// Take, so this only bounds memory.
	Sweep(ctx context.Context) (int, error)
}

type memoryEntry struct {
	count     int
	resetTime time.Time
}

// MemoryStore is a process-local Store backed by a mutex-guarded map
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-memory counter store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Take implements Store
func (s *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetTime) {
		e = &memoryEntry{resetTime: now.Add(window)}
		s.entries[key] = e
	}

	if e.count >= limit {
		return false, e.count, e.resetTime, nil
	}

	e.count++
	return true, e.count, e.resetTime, nil
}

// Sweep implements Store
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.resetTime) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
