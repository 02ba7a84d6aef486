package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/tenant"
)

// KeyFunc derives the limiter identifier for a request
type KeyFunc func(r *http.Request) string

// UserOrIPKey keys authenticated requests by tenant and user, anonymous
// requests by client address
func UserOrIPKey(r *http.Request) string {
	if tc, ok := tenant.FromContext(r.Context()); ok && tc.Authenticated() {
		return "user:" + tc.TenantID + ":" + tc.UserID
	}
	return "ip:" + httputil.ClientIP(r)
}

// IPKey keys every request by client address
func IPKey(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// Middleware applies a policy to every request through the handler. Keys
// default to UserOrIPKey when keyFn is nil. Denied requests get a 429 with
// Retry-After and the X-RateLimit response headers.
func Middleware(limiter *Limiter, policy Policy, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = UserOrIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.CheckLimit(r.Context(), policy, keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.ResetTime.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
			}

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(time.Now())))
				httputil.WriteTooManyRequests(w, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
