package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/config"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/permission"
	"github.com/oakline/warden/pkg/ratelimit"
	"github.com/oakline/warden/pkg/settings"
	"github.com/oakline/warden/pkg/stepup"
	"github.com/oakline/warden/pkg/tenant"
)

// Dependencies carries everything the server wires together. All fields
// are required except Metrics, which may be nil when metrics are disabled.
type Dependencies struct {
	Config  *config.Config
	Logger  *observability.Logger
	Metrics *observability.Metrics

	Resolver *tenant.Resolver
	Tokens   *tenant.TokenManager
	Users    UserStore

	Limiter *ratelimit.Limiter
	Gate    *stepup.Gate
	Auditor audit.Logger

	SettingsHandlers   *settings.Handlers
	AuditHandlers      *audit.Handlers
	PermissionHandlers *permission.Handlers
	StepUpHandlers     *stepup.Handlers
}

// Server is the API server. The middleware order is part of the contract:
// request-id and logging first, then tenant resolution, then per-route
// permission checks, rate limits and the step-up gate.
type Server struct {
	router *mux.Router
	deps   Dependencies
	logger *observability.Logger
	auth   *AuthHandlers
}

// NewServer creates the API server and registers all routes
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		logger: deps.Logger.WithComponent("api"),
	}
	s.auth = NewAuthHandlers(deps.Users, deps.Tokens, deps.Limiter, deps.Auditor,
		deps.Logger, deps.Metrics, deps.Config)
	s.setupRoutes()
	return s
}

// Router returns the underlying mux router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(httputil.RecoveryMiddleware(s.deps.Logger))
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(s.loggerContext)
	s.router.Use(httputil.LoggingMiddleware(s.deps.Logger))
	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}
	s.router.Use(httputil.ContentTypeMiddleware)
	s.router.Use(httputil.MaxBytesMiddleware(1 << 20))

	// Login is the only route reachable without a session
	public := s.router.PathPrefix("/api/v1/auth").Subrouter()
	public.HandleFunc("/login", s.auth.Login).Methods("POST")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(tenant.Middleware(s.deps.Resolver, tenant.MiddlewareOptions{
		OnFailure: s.authFailure,
	}))
	api.Use(s.rateLimit(ratelimit.PolicyStandard))

	api.HandleFunc("/auth/logout", s.auth.Logout).Methods("POST")

	st := api.PathPrefix("/settings").Subrouter()
	st.Use(stepup.Middleware(s.deps.Gate, sensitiveSettings))
	st.HandleFunc("/{category}", s.deps.SettingsHandlers.GetSettings).Methods("GET")
	st.HandleFunc("/{category}", s.deps.SettingsHandlers.UpdateSettings).Methods("PUT")
	st.Handle("/{category}/export",
		s.rateLimit(ratelimit.PolicyExport)(http.HandlerFunc(s.deps.SettingsHandlers.ExportSettings))).Methods("GET")
	st.HandleFunc("/{category}/history", s.deps.SettingsHandlers.GetHistory).Methods("GET")

	api.HandleFunc("/permissions", s.deps.PermissionHandlers.ListRolePermissions).Methods("GET")
	api.HandleFunc("/permissions/suggestions", s.deps.PermissionHandlers.GetSuggestions).Methods("GET")
	api.Handle("/permissions/validate",
		tenant.RequireAuthenticated(http.HandlerFunc(s.deps.PermissionHandlers.ValidateSet))).Methods("POST")

	api.Handle("/audit/events",
		permission.Require(permission.SecuritySettingsView, s.permissionDenied)(
			http.HandlerFunc(s.deps.AuditHandlers.ListEvents))).Methods("GET")
	api.Handle("/audit/export",
		permission.Require(permission.SecuritySettingsView, s.permissionDenied)(
			s.rateLimit(ratelimit.PolicyExport)(
				http.HandlerFunc(s.deps.AuditHandlers.ExportEvents)))).Methods("GET")

	su := api.PathPrefix("/stepup").Subrouter()
	su.HandleFunc("/enroll", s.deps.StepUpHandlers.Enroll).Methods("POST")
	su.HandleFunc("/challenge", s.deps.StepUpHandlers.Challenge).Methods("POST")
	su.Handle("/verify",
		s.rateLimit(ratelimit.PolicyStrict)(http.HandlerFunc(s.deps.StepUpHandlers.Verify))).Methods("POST")
	su.HandleFunc("/revoke", s.deps.StepUpHandlers.Revoke).Methods("POST")
}

// loggerContext makes the structured logger reachable from downstream
// middleware via the request context
func (s *Server) loggerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithLogger(r.Context(), s.deps.Logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit returns the rate limit middleware for a policy, or a
// pass-through when rate limiting is disabled by config
func (s *Server) rateLimit(policy ratelimit.Policy) mux.MiddlewareFunc {
	if !s.deps.Config.RateLimit.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(s.deps.Limiter, policy, ratelimit.UserOrIPKey)
}

func (s *Server) authFailure(reason string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// permissionDenied records denials in the audit log and metrics. Invoked
// only on 403, never on 401: unauthenticated requests have no actor worth
// recording.
func (s *Server) permissionDenied(tc *tenant.Context, perm permission.Permission) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.PermissionDenialsTotal.WithLabelValues(string(perm), string(tc.Role)).Inc()
	}

	event := audit.NewEvent(tc.TenantID, audit.EventTypeAuthzDenied, audit.EventStatusDenied)
	event.UserID = tc.UserID
	event.UserEmail = tc.UserEmail
	event.Role = string(tc.Role)
	event.Resource = string(perm)
	event.RequestID = tc.RequestID
	if err := s.deps.Auditor.Log(context.Background(), event); err != nil {
		s.logger.WithError(err).Warn("failed to record authz denial")
	}
}

// sensitiveSettings reports whether the matched settings category is
// marked sensitive in the category policy table
func sensitiveSettings(r *http.Request) bool {
	category := settings.Category(mux.Vars(r)["category"])
	policy, ok := settings.LookupCategory(category)
	return ok && policy.Sensitive
}
