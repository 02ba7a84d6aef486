package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the authorization pipeline
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tenant resolution metrics
	TenantResolutionsTotal *prometheus.CounterVec
	TenantCacheHitsTotal   prometheus.Counter
	TenantCacheMissesTotal prometheus.Counter

	// Authorization metrics
	AuthFailuresTotal      *prometheus.CounterVec
	PermissionDenialsTotal *prometheus.CounterVec
	PermissionChecksTotal  *prometheus.CounterVec

	// Rate limit metrics
	RateLimitChecksTotal  *prometheus.CounterVec
	RateLimitBlocksTotal  *prometheus.CounterVec
	RateLimitStoreErrors  *prometheus.CounterVec
	RateLimitWindowsSwept prometheus.Counter

	// Settings / audit metrics
	SettingsChangesTotal   *prometheus.CounterVec
	AuditWritesTotal       *prometheus.CounterVec
	AuditWriteFailures     *prometheus.CounterVec
	DiffWriteFailuresTotal prometheus.Counter

	// Step-up metrics
	StepUpChallengesTotal    prometheus.Counter
	StepUpVerificationsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		TenantResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_tenant_resolutions_total",
				Help: "Total number of tenant context resolutions",
			},
			[]string{"source", "status"},
		),
		TenantCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_tenant_cache_hits_total",
				Help: "Default tenant cache hits",
			},
		),
		TenantCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_tenant_cache_misses_total",
				Help: "Default tenant cache misses",
			},
		),

		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_auth_failures_total",
				Help: "Total number of failed authentication attempts",
			},
			[]string{"reason"},
		),
		PermissionDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_permission_denials_total",
				Help: "Total number of permission denials",
			},
			[]string{"permission", "role"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"result"},
		),

		RateLimitChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_ratelimit_checks_total",
				Help: "Total number of rate limit checks",
			},
			[]string{"policy", "result"},
		),
		RateLimitBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_ratelimit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"policy"},
		),
		RateLimitStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_ratelimit_store_errors_total",
				Help: "Rate limit store failures by policy and failure mode",
			},
			[]string{"policy", "mode"},
		),
		RateLimitWindowsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_ratelimit_windows_swept_total",
				Help: "Expired rate limit windows removed by the sweeper",
			},
		),

		SettingsChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_settings_changes_total",
				Help: "Total number of settings updates",
			},
			[]string{"category"},
		),
		AuditWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_audit_writes_total",
				Help: "Total number of audit event writes",
			},
			[]string{"event_type", "status"},
		),
		AuditWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_audit_write_failures_total",
				Help: "Audit event writes that failed and were swallowed",
			},
			[]string{"sink"},
		),
		DiffWriteFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_diff_write_failures_total",
				Help: "Settings change diff writes that failed and were swallowed",
			},
		),

		StepUpChallengesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_stepup_challenges_total",
				Help: "Total number of step-up challenges issued",
			},
		),
		StepUpVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_stepup_verifications_total",
				Help: "Total number of step-up verification attempts",
			},
			[]string{"result"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TenantResolutionsTotal,
		m.TenantCacheHitsTotal,
		m.TenantCacheMissesTotal,
		m.AuthFailuresTotal,
		m.PermissionDenialsTotal,
		m.PermissionChecksTotal,
		m.RateLimitChecksTotal,
		m.RateLimitBlocksTotal,
		m.RateLimitStoreErrors,
		m.RateLimitWindowsSwept,
		m.SettingsChangesTotal,
		m.AuditWritesTotal,
		m.AuditWriteFailures,
		m.DiffWriteFailuresTotal,
		m.StepUpChallengesTotal,
		m.StepUpVerificationsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
