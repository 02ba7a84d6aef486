package stepup

import (
	"errors"
	"net/http"

	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/tenant"
)

// Handlers exposes the step-up enrollment and verification endpoints.
// Every endpoint is super-admin-only; other roles have no step-up flow.
type Handlers struct {
	gate *Gate
}

// NewHandlers creates step-up HTTP handlers
func NewHandlers(gate *Gate) *Handlers {
	return &Handlers{gate: gate}
}

func (h *Handlers) superAdmin(w http.ResponseWriter, r *http.Request) (*tenant.Context, bool) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	if !tc.IsSuperAdmin {
		httputil.WriteForbidden(w, "step-up verification is restricted to super admins")
		return nil, false
	}
	return tc, true
}

// Enroll handles POST /api/v1/stepup/enroll
func (h *Handlers) Enroll(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.superAdmin(w, r)
	if !ok {
		return
	}

	enrollment, err := h.gate.Enroll(r.Context(), tc)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to enroll")
		return
	}
	httputil.WriteSuccess(w, enrollment)
}

// Challenge handles POST /api/v1/stepup/challenge. Clients that know they
// are about to touch a sensitive resource can open the window up front
// instead of waiting for a 428.
func (h *Handlers) Challenge(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.superAdmin(w, r)
	if !ok {
		return
	}

	challenge, err := h.gate.IssueChallenge(r.Context(), tc)
	if err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to issue challenge")
		return
	}
	httputil.WriteSuccess(w, challenge)
}

type verifyRequest struct {
	Code string `json:"code"`
}

// Verify handles POST /api/v1/stepup/verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.superAdmin(w, r)
	if !ok {
		return
	}

	var req verifyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}

	if err := h.gate.VerifyCode(r.Context(), tc, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrNotEnrolled):
			httputil.WriteForbidden(w, "step-up enrollment required")
		case errors.Is(err, ErrNoChallenge):
			httputil.WriteErrorCode(w, http.StatusConflict, httputil.CodeStepUpRequired,
				"no active challenge, request a new one")
		case errors.Is(err, ErrInvalidCode):
			httputil.WriteForbidden(w, "verification failed")
		default:
			// Backend trouble is indistinguishable from a bad code to the
			// caller; the gate stays closed either way
			httputil.WriteForbidden(w, "verification failed")
		}
		return
	}

	httputil.WriteSuccessMessage(w, "verified", map[string]interface{}{
		"grant_ttl_seconds": int(h.gate.grantTTL.Seconds()),
	})
}

// Revoke handles POST /api/v1/stepup/revoke
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.superAdmin(w, r)
	if !ok {
		return
	}

	if err := h.gate.Revoke(r.Context(), tc); err != nil {
		httputil.WriteInternalErrorMessage(w, "Failed to revoke grant")
		return
	}
	httputil.WriteNoContent(w)
}
