package stepup

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/tenant"
)

// SensitiveFunc reports whether a request touches a resource that needs
// step-up verification. The API layer binds this to its category policy.
type SensitiveFunc func(r *http.Request) bool

// Middleware challenges super admins touching sensitive resources without
// a live verification grant. Other roles pass through untouched; their
// access is decided by the permission middleware alone.
func Middleware(gate *Gate, sensitive SensitiveFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sensitive(r) {
				next.ServeHTTP(w, r)
				return
			}

			tc, ok := tenant.FromContext(r.Context())
			if !ok || !tc.Authenticated() {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !tc.IsSuperAdmin {
				next.ServeHTTP(w, r)
				return
			}

			if !gate.VerifySuperAdminStepUp(r.Context(), tc) {
				gate.WriteChallenge(w, r, tc)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
