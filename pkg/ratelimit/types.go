package ratelimit

import (
	"fmt"
	"time"
)

// Policy names one rate-limit tier. Policies differ only in their limit,
// window, and failure mode; the algorithm is the same fixed-window counter
// for all of them.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed denies requests when the backing store errors. Set for
	// the security-sensitive tiers (login, export, password reset); the
	// general tiers fail open so a store outage does not take browsing
	// down with it.
	FailClosed bool
}

// Built-in policies
var (
	PolicyStandard      = Policy{Name: "standard", Limit: 100, Window: time.Minute}
	PolicyStrict        = Policy{Name: "strict", Limit: 10, Window: time.Minute, FailClosed: true}
	PolicyExport        = Policy{Name: "export", Limit: 5, Window: time.Minute, FailClosed: true}
	PolicyLogin         = Policy{Name: "login", Limit: 5, Window: 15 * time.Minute, FailClosed: true}
	PolicyPasswordReset = Policy{Name: "password-reset", Limit: 3, Window: time.Hour, FailClosed: true}
)

// Result is the outcome of a single limiter check
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetTime.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// LoginIPKey is the limiter identifier for login attempts from one address
func LoginIPKey(ip string) string {
	return fmt.Sprintf("auth:login:ip:%s", ip)
}

// LoginAccountKey is the limiter identifier for login attempts against one
// account within a tenant
func LoginAccountKey(tenantID, email string) string {
	return fmt.Sprintf("auth:login:%s:%s", tenantID, email)
}
