package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/config"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/ratelimit"
	"github.com/oakline/warden/pkg/tenant"
)

// dummyHash keeps the bcrypt comparison cost constant for unknown emails,
// so response timing does not reveal whether an account exists
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// AuthHandlers handles credential login and logout
type AuthHandlers struct {
	users   UserStore
	tokens  *tenant.TokenManager
	limiter *ratelimit.Limiter
	auditor audit.Logger
	logger  *observability.Logger
	metrics *observability.Metrics

	cookieName       string
	sessionTTL       time.Duration
	secureCookies    bool
	rateLimitEnabled bool
}

// NewAuthHandlers creates login/logout handlers
func NewAuthHandlers(users UserStore, tokens *tenant.TokenManager, limiter *ratelimit.Limiter, auditor audit.Logger, logger *observability.Logger, metrics *observability.Metrics, cfg *config.Config) *AuthHandlers {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &AuthHandlers{
		users:            users,
		tokens:           tokens,
		limiter:          limiter,
		auditor:          auditor,
		logger:           logger.WithComponent("auth"),
		metrics:          metrics,
		cookieName:       cfg.Auth.CookieName,
		sessionTTL:       cfg.Auth.SessionTTL,
		secureCookies:    cfg.IsProduction(),
		rateLimitEnabled: cfg.RateLimit.Enabled,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Tenant   string `json:"tenant,omitempty"`
}

// Login handles POST /api/v1/auth/login. Failures are indistinguishable
// to the caller: unknown email, wrong password, and inactive account all
// produce the same 401.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := httputil.ClientIP(r)
	ctx := r.Context()

	if h.rateLimitEnabled {
		if res := h.limiter.CheckLimit(ctx, ratelimit.PolicyLogin, ratelimit.LoginIPKey(ip)); !res.Allowed {
			h.writeLoginBlocked(w, r, email, res)
			return
		}

		accountScope := req.Tenant
		if accountScope == "" {
			accountScope = "default"
		}
		if res := h.limiter.CheckLimit(ctx, ratelimit.PolicyLogin, ratelimit.LoginAccountKey(accountScope, email)); !res.Allowed {
			h.writeLoginBlocked(w, r, email, res)
			return
		}
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.WithError(err).Error("user lookup failed during login")
		}
		bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		h.loginFailed(ctx, r, "", email, "unknown user")
		httputil.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.loginFailed(ctx, r, user.TenantID, email, "password mismatch")
		httputil.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	if !user.Active {
		h.loginFailed(ctx, r, user.TenantID, email, "inactive account")
		httputil.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.TenantID, "", user.Email, user.Role)
	if err != nil {
		h.logger.WithError(err).Error("failed to issue session token")
		httputil.WriteInternalErrorMessage(w, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	event := audit.NewEvent(user.TenantID, audit.EventTypeAuthLogin, audit.EventStatusSuccess)
	event.UserID = user.ID
	event.UserEmail = user.Email
	event.Role = string(user.Role)
	event.IPAddress = ip
	event.UserAgent = r.UserAgent()
	h.logAudit(ctx, event)

	httputil.WriteSuccess(w, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"role":      user.Role,
			"tenant_id": user.TenantID,
		},
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.Authenticated() {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	event := audit.NewEvent(tc.TenantID, audit.EventTypeAuthLogout, audit.EventStatusSuccess)
	event.UserID = tc.UserID
	event.UserEmail = tc.UserEmail
	event.Role = string(tc.Role)
	event.RequestID = tc.RequestID
	h.logAudit(r.Context(), event)

	httputil.WriteSuccessMessage(w, "Logged out", nil)
}

func (h *AuthHandlers) loginFailed(ctx context.Context, r *http.Request, tenantID, email, reason string) {
	if h.metrics != nil {
		h.metrics.AuthFailuresTotal.WithLabelValues("invalid_credentials").Inc()
	}

	event := audit.NewEvent(tenantID, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure)
	event.UserEmail = email
	event.IPAddress = httputil.ClientIP(r)
	event.UserAgent = r.UserAgent()
	event.Details["reason"] = reason
	h.logAudit(ctx, event)
}

func (h *AuthHandlers) writeLoginBlocked(w http.ResponseWriter, r *http.Request, email string, res ratelimit.Result) {
	event := audit.NewEvent("", audit.EventTypeRateLimitBlock, audit.EventStatusDenied)
	event.UserEmail = email
	event.Resource = "auth/login"
	event.IPAddress = httputil.ClientIP(r)
	h.logAudit(r.Context(), event)

	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(time.Now())))
	httputil.WriteErrorCode(w, http.StatusTooManyRequests, httputil.CodeTooManyAttempts,
		"Too many login attempts, try again later")
}

func (h *AuthHandlers) logAudit(ctx context.Context, event *audit.Event) {
	if err := h.auditor.Log(context.WithoutCancel(ctx), event); err != nil {
		h.logger.WithError(err).WithField("event_type", string(event.EventType)).
			Warn("failed to record auth audit event")
	}
}
