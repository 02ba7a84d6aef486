package ratelimit

import (
	"context"
	"time"

	"github.com/oakline/warden/pkg/observability"
)

// Limiter applies named policies against a counter store
type Limiter struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLimiter creates a limiter. metrics may be nil.
func NewLimiter(store Store, logger *observability.Logger, metrics *observability.Metrics) *Limiter {
	return &Limiter{
		store:   store,
		logger:  logger.WithComponent("ratelimit"),
		metrics: metrics,
	}
}

// CheckLimit consumes one unit of the policy's window for the identifier.
// It never returns an error: store failures resolve to the policy's
// failure mode instead.
func (l *Limiter) CheckLimit(ctx context.Context, policy Policy, identifier string) Result {
	key := policy.Name + ":" + identifier

	allowed, count, resetTime, err := l.store.Take(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		return l.storeFailure(policy, identifier, err)
	}

	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	if l.metrics != nil {
		result := "allowed"
		if !allowed {
			result = "blocked"
			l.metrics.RateLimitBlocksTotal.WithLabelValues(policy.Name).Inc()
		}
		l.metrics.RateLimitChecksTotal.WithLabelValues(policy.Name, result).Inc()
	}

	if !allowed {
		l.logger.WithFields(map[string]interface{}{
			"policy":     policy.Name,
			"identifier": identifier,
			"limit":      policy.Limit,
		}).Warn("rate limit exceeded")
	}

	return Result{Allowed: allowed, Remaining: remaining, ResetTime: resetTime}
}

func (l *Limiter) storeFailure(policy Policy, identifier string, err error) Result {
	mode := "open"
	if policy.FailClosed {
		mode = "closed"
	}
	if l.metrics != nil {
		l.metrics.RateLimitStoreErrors.WithLabelValues(policy.Name, mode).Inc()
	}
	l.logger.WithError(err).WithFields(map[string]interface{}{
		"policy":     policy.Name,
		"identifier": identifier,
		"mode":       mode,
	}).Error("rate limit store failure")

	if policy.FailClosed {
		return Result{Allowed: false, Remaining: 0, ResetTime: time.Now().Add(policy.Window)}
	}
	return Result{Allowed: true, Remaining: policy.Limit, ResetTime: time.Now().Add(policy.Window)}
}

// Sweep removes expired windows from the store
func (l *Limiter) Sweep(ctx context.Context) {
	removed, err := l.store.Sweep(ctx)
	if err != nil {
		l.logger.WithError(err).Error("rate limit sweep failed")
		return
	}
	if l.metrics != nil {
		l.metrics.RateLimitWindowsSwept.Add(float64(removed))
	}
	if removed > 0 {
		l.logger.WithField("removed", removed).Debug("swept expired rate limit windows")
	}
}
