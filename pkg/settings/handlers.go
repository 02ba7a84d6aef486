package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/permission"
	"github.com/oakline/warden/pkg/tenant"
)

// Handlers exposes tenant settings over HTTP. Permission checks are
// per-category, resolved from the category policy at request time; 401 and
// 403 are never interchanged.
type Handlers struct {
	service *Service
	diffs   DiffStore
	auditor audit.Logger
	logger  *observability.Logger
}

// NewHandlers creates settings HTTP handlers
func NewHandlers(service *Service, diffs DiffStore, auditor audit.Logger, logger *observability.Logger) *Handlers {
	return &Handlers{
		service: service,
		diffs:   diffs,
		auditor: auditor,
		logger:  logger.WithComponent("settings"),
	}
}

// authorize resolves the caller and the category policy, enforcing the
// given permission. It writes the error response itself and returns ok
// false when the request must not proceed.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request, perm func(CategoryPolicy) permission.Permission) (*tenant.Context, Category, bool) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return nil, "", false
	}

	category := Category(mux.Vars(r)["category"])
	policy, ok := LookupCategory(category)
	if !ok {
		httputil.WriteNotFoundError(w, "Unknown settings category")
		return nil, "", false
	}

	required := perm(policy)
	if required == "" || !permission.HasPermission(tc.Role, required) {
		httputil.WriteForbidden(w, "Insufficient permissions")
		return nil, "", false
	}

	return tc, category, true
}

// GetSettings handles GET /api/v1/settings/{category}
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	tc, category, ok := h.authorize(w, r, func(p CategoryPolicy) permission.Permission { return p.View })
	if !ok {
		return
	}

	settings, err := h.service.Get(r.Context(), tc.TenantID, category)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to load settings")
		return
	}

	httputil.WriteSuccess(w, settings)
}

// UpdateSettings handles PUT /api/v1/settings/{category}
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	tc, category, ok := h.authorize(w, r, func(p CategoryPolicy) permission.Permission { return p.Edit })
	if !ok {
		return
	}

	var data map[string]interface{}
	if !httputil.ParseJSONOrError(w, r, &data) {
		return
	}
	if data == nil {
		httputil.WriteValidationError(w, "Settings body must be a JSON object")
		return
	}

	updated, err := h.service.Update(r.Context(), tc, category, data, RequestMeta{
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.WithError(err).WithField("category", string(category)).Error("settings update failed")
		httputil.WriteInternalErrorMessage(w, "Failed to update settings")
		return
	}

	httputil.WriteSuccess(w, updated)
}

// ExportSettings handles GET /api/v1/settings/{category}/export
func (h *Handlers) ExportSettings(w http.ResponseWriter, r *http.Request) {
	tc, category, ok := h.authorize(w, r, func(p CategoryPolicy) permission.Permission { return p.Export })
	if !ok {
		return
	}

	settings, err := h.service.Get(r.Context(), tc.TenantID, category)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to load settings")
		return
	}

	// Exports of tenant configuration are audit-worthy in their own right
	event := audit.NewEvent(tc.TenantID, audit.EventTypeSettingsExported, audit.EventStatusSuccess)
	event.UserID = tc.UserID
	event.Role = string(tc.Role)
	event.Resource = "settings/" + string(category)
	event.IPAddress = httputil.ClientIP(r)
	event.RequestID = tc.RequestID
	// The export is committed at this point; a client disconnect must not
	// cancel the audit write
	if err := h.auditor.Log(context.WithoutCancel(r.Context()), event); err != nil {
		h.logger.WithError(err).Warn("failed to audit settings export")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+string(category)+"-settings.json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(settings)
}

// GetHistory handles GET /api/v1/settings/{category}/history
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	tc, category, ok := h.authorize(w, r, func(p CategoryPolicy) permission.Permission { return p.View })
	if !ok {
		return
	}

	limit, _ := httputil.ParseQueryInt(r, "limit", 50)
	diffs, err := h.diffs.List(r.Context(), tc.TenantID, category, limit)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to load change history")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"changes": diffs,
		"count":   len(diffs),
	})
}
