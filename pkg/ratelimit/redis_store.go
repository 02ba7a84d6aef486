package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// takeScript checks and increments a fixed-window counter atomically.
// The counter is never incremented past the limit, and the expiry is set
// only when the window opens, so rejected calls do not move the reset time.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', key) or '0')
if current >= limit then
	return {0, current, redis.call('PTTL', key)}
end

local count = redis.call('INCR', key)
if count == 1 then
	redis.call('PEXPIRE', key, window_ms)
end
return {1, count, redis.call('PTTL', key)}
`)

// RedisStore is a Store shared across instances. Window expiry rides on
// Redis key TTLs, so Sweep has nothing to do.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Take implements Store
func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	redisKey := s.prefix + ":" + key

	raw, err := takeScript.Run(ctx, s.client, []string{redisKey}, limit, window.Milliseconds()).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("ratelimit take: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("ratelimit take: unexpected reply %T", raw)
	}

	allowed := reply[0].(int64) == 1
	count := int(reply[1].(int64))

	ttlMs := reply[2].(int64)
	if ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}
	resetTime := time.Now().Add(time.Duration(ttlMs) * time.Millisecond)

	return allowed, count, resetTime, nil
}

// Sweep implements Store. Redis expires windows via TTL on its own.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Ping verifies connectivity to the backing Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
