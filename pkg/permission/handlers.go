package permission

import (
	"net/http"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/tenant"
)

// Handlers exposes the advisory engine over HTTP
type Handlers struct {
	engine *Engine
}

// NewHandlers creates permission HTTP handlers
func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

// ListRolePermissions returns the caller's materialized permission list
//
// GET /api/v1/permissions
func (h *Handlers) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	perms := ForRole(tc.Role)
	httputil.WriteSuccess(w, map[string]interface{}{
		"role":        tc.Role,
		"permissions": perms,
		"risk":        h.engine.RiskLevel(perms),
	})
}

// GetSuggestions returns advisory permission suggestions for a role.
// Query params: role (defaults to caller's role), current (repeatable),
// department (optional). Advisory output only; nothing here grants access.
//
// GET /api/v1/permissions/suggestions
func (h *Handlers) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	role := tenant.Role(httputil.ParseQueryString(r, "role", string(tc.Role)))

	var current []Permission
	for _, p := range r.URL.Query()["current"] {
		current = append(current, Permission(p))
	}
	if current == nil {
		current = ForRole(role)
	}

	department := httputil.ParseQueryString(r, "department", "")

	httputil.WriteSuccess(w, map[string]interface{}{
		"role":        role,
		"suggestions": h.engine.Suggestions(role, current, department),
	})
}

// ValidateSet validates a proposed permission set
//
// POST /api/v1/permissions/validate
func (h *Handlers) ValidateSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions []Permission `json:"permissions"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	httputil.WriteSuccess(w, h.engine.Validate(req.Permissions))
}
