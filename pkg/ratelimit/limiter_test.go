package ratelimit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oakline/warden/pkg/observability"
)

type failingStore struct {
	err error
}

func (s *failingStore) Take(context.Context, string, int, time.Duration) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, s.err
}

func (s *failingStore) Sweep(context.Context) (int, error) {
	return 0, s.err
}

func testLimiter(store Store) *Limiter {
	return NewLimiter(store, observability.NewLogger(observability.ErrorLevel, io.Discard), nil)
}

func TestLimiter_CheckLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("remaining counts down to zero", func(t *testing.T) {
		limiter := testLimiter(NewMemoryStore())
		policy := Policy{Name: "test", Limit: 3, Window: time.Minute}

		want := []int{2, 1, 0}
		for _, expected := range want {
			result := limiter.CheckLimit(ctx, policy, "id")
			assert.True(t, result.Allowed)
			assert.Equal(t, expected, result.Remaining)
		}

		result := limiter.CheckLimit(ctx, policy, "id")
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
	})

	t.Run("policies do not share counters", func(t *testing.T) {
		limiter := testLimiter(NewMemoryStore())
		a := Policy{Name: "a", Limit: 1, Window: time.Minute}
		b := Policy{Name: "b", Limit: 1, Window: time.Minute}

		assert.True(t, limiter.CheckLimit(ctx, a, "id").Allowed)
		assert.False(t, limiter.CheckLimit(ctx, a, "id").Allowed)
		assert.True(t, limiter.CheckLimit(ctx, b, "id").Allowed)
	})

	t.Run("store failure fails open by default", func(t *testing.T) {
		limiter := testLimiter(&failingStore{err: errors.New("store down")})
		policy := Policy{Name: "browse", Limit: 10, Window: time.Minute}

		result := limiter.CheckLimit(ctx, policy, "id")
		assert.True(t, result.Allowed)
		assert.Equal(t, policy.Limit, result.Remaining)
	})

	t.Run("store failure fails closed for sensitive policies", func(t *testing.T) {
		limiter := testLimiter(&failingStore{err: errors.New("store down")})
		policy := Policy{Name: "login", Limit: 5, Window: 15 * time.Minute, FailClosed: true}

		result := limiter.CheckLimit(ctx, policy, "id")
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.False(t, result.ResetTime.IsZero())
	})
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 30, Result{ResetTime: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetTime: now}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetTime: now.Add(-time.Minute)}.RetryAfter(now))
}

func TestLoginKeys(t *testing.T) {
	assert.Equal(t, "auth:login:ip:10.0.0.1", LoginIPKey("10.0.0.1"))
	assert.Equal(t, "auth:login:t1:a@b.com", LoginAccountKey("t1", "a@b.com"))
}
