package tenant

import (
	"net/http"

	"github.com/oakline/warden/pkg/contextkeys"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
)

// MiddlewareOptions configures the tenant middleware
type MiddlewareOptions struct {
	// OnFailure is invoked with the failure reason before the 401 is
	// written; used for the auth failure metric
	OnFailure func(reason string)
}

// Middleware resolves the tenant context and stores it in the request
// context. Requests without a resolvable context are rejected with 401;
// no partial context ever reaches a handler.
func Middleware(resolver *Resolver, opts MiddlewareOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, err := resolver.Resolve(r)
			if err != nil {
				reason := "resolver_error"
				message := "Authentication required"
				if IsAuthError(err) {
					reason = "invalid_session"
				}
				if opts.OnFailure != nil {
					opts.OnFailure(reason)
				}
				observability.FromContext(r.Context()).
					WithComponent("tenant").
					WithError(err).
					Warn("tenant resolution failed")
				httputil.WriteUnauthorized(w, message)
				return
			}

			ctx := NewContext(r.Context(), tc)
			if tc.UserID != "" {
				ctx = contextkeys.WithUserID(ctx, tc.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests whose tenant context has no user
// identity. Placed after Middleware on routes that accept trusted-header
// or bypass contexts for reads but need a real user for mutations.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := FromContext(r.Context())
		if !ok || !tc.Authenticated() {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
