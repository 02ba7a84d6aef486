package stepup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisGrantStore is a GrantStore shared across instances, so a grant
// issued by one replica is honored by all of them. Expiry rides on key
// TTLs.
type RedisGrantStore struct {
	client *redis.Client
	prefix string
}

// NewRedisGrantStore creates a Redis-backed grant store
func NewRedisGrantStore(client *redis.Client, prefix string) *RedisGrantStore {
	if prefix == "" {
		prefix = "stepup"
	}
	return &RedisGrantStore{client: client, prefix: prefix}
}

// Put implements GrantStore
func (s *RedisGrantStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+":"+key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("stepup grant put: %w", err)
	}
	return nil
}

// Valid implements GrantStore
func (s *RedisGrantStore) Valid(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+":"+key).Result()
	if err != nil {
		return false, fmt.Errorf("stepup grant check: %w", err)
	}
	return n == 1, nil
}

// Revoke implements GrantStore
func (s *RedisGrantStore) Revoke(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("stepup grant revoke: %w", err)
	}
	return nil
}
