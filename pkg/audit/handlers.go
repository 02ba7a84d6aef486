package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/tenant"
)

// Searcher is the read side of the audit log
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]*Event, error)
}

// Handlers exposes the audit log over HTTP. Every query is scoped to the
// caller's tenant; super admins may query another tenant via the tenant_id
// parameter.
type Handlers struct {
	store Searcher
}

// NewHandlers creates audit HTTP handlers
func NewHandlers(store Searcher) *Handlers {
	return &Handlers{store: store}
}

// ListEvents handles GET /api/v1/audit/events
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	filter := h.parseFilter(r, tc)

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to query audit events")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// ExportEvents handles GET /api/v1/audit/export
func (h *Handlers) ExportEvents(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	format := ExportFormat(httputil.ParseQueryString(r, "format", string(ExportFormatJSON)))
	if !ValidExportFormat(format) {
		httputil.WriteValidationError(w, "Unsupported export format")
		return
	}

	filter := h.parseFilter(r, tc)

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to query audit events")
		return
	}

	data, err := Export(events, format)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to export audit events")
		return
	}

	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	case ExportFormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-events.ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-events.json")
	}

	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handlers) parseFilter(r *http.Request, tc *tenant.Context) SearchFilter {
	query := r.URL.Query()
	filter := SearchFilter{TenantID: tc.TenantID}

	if tc.IsSuperAdmin {
		if override := query.Get("tenant_id"); override != "" {
			filter.TenantID = override
		}
	}

	if startStr := query.Get("start_time"); startStr != "" {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			filter.StartTime = &t
		}
	}
	if endStr := query.Get("end_time"); endStr != "" {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			filter.EndTime = &t
		}
	}

	filter.UserID = query.Get("user_id")
	filter.Resource = query.Get("resource")
	filter.IPAddress = query.Get("ip_address")

	if eventTypesStr := query.Get("event_types"); eventTypesStr != "" {
		for _, et := range strings.Split(eventTypesStr, ",") {
			if et = strings.TrimSpace(et); et != "" {
				filter.EventTypes = append(filter.EventTypes, EventType(et))
			}
		}
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status := EventStatus(statusStr)
		filter.Status = &status
	}

	filter.Limit, _ = httputil.ParseQueryInt(r, "limit", 100)
	if filter.Limit < 1 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	filter.Offset, _ = httputil.ParseQueryInt(r, "offset", 0)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return filter
}
