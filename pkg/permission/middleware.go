package permission

import (
	"net/http"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/tenant"
)

// DenialHook observes permission denials for metrics and audit
type DenialHook func(tc *tenant.Context, perm Permission)

// Require rejects requests whose tenant context lacks the permission.
// 401 when no authenticated identity exists, 403 when the identity is
// resolved but the role does not grant the permission. The two are never
// interchangeable.
func Require(perm Permission, onDenied DenialHook) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenant.FromContext(r.Context())
			if !ok || !tc.Authenticated() {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !HasPermission(tc.Role, perm) {
				if onDenied != nil {
					onDenied(tc, perm)
				}
				observability.FromContext(r.Context()).
					WithComponent("permission").
					WithFields(map[string]interface{}{
						"permission": string(perm),
						"role":       string(tc.Role),
						"tenant_id":  tc.TenantID,
					}).
					Warn("permission denied")
				httputil.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose role is not in the allow-list.
// Membership is exact and case-sensitive.
func RequireRole(allowed ...tenant.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenant.FromContext(r.Context())
			if !ok || !tc.Authenticated() {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !HasRole(tc.Role, allowed) {
				httputil.WriteForbidden(w, "Insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin rejects requests from anyone but super admins
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenant.FromContext(r.Context())
		if !ok || !tc.Authenticated() {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}

		if !tc.IsSuperAdmin {
			httputil.WriteForbidden(w, "Super admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
