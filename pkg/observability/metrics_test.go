package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if metrics.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if metrics.AuthFailuresTotal == nil {
		t.Error("AuthFailuresTotal is nil")
	}
	if metrics.PermissionDenialsTotal == nil {
		t.Error("PermissionDenialsTotal is nil")
	}
	if metrics.RateLimitBlocksTotal == nil {
		t.Error("RateLimitBlocksTotal is nil")
	}
	if metrics.AuditWriteFailures == nil {
		t.Error("AuditWriteFailures is nil")
	}
	if metrics.StepUpChallengesTotal == nil {
		t.Error("StepUpChallengesTotal is nil")
	}
}

func TestMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
	metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
	metrics.PermissionDenialsTotal.WithLabelValues("settings.security.edit", "STAFF").Inc()
	metrics.RateLimitBlocksTotal.WithLabelValues("login").Inc()
	metrics.StepUpChallengesTotal.Inc()

	if got := testutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues("invalid_token")); got != 2 {
		t.Errorf("AuthFailuresTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.PermissionDenialsTotal.WithLabelValues("settings.security.edit", "STAFF")); got != 1 {
		t.Errorf("PermissionDenialsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RateLimitBlocksTotal.WithLabelValues("login")); got != 1 {
		t.Errorf("RateLimitBlocksTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.StepUpChallengesTotal); got != 1 {
		t.Errorf("StepUpChallengesTotal = %v, want 1", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/security", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/settings/security", "418"))
	if got != 1 {
		t.Errorf("HTTPRequestsTotal = %v, want 1", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RateLimitBlocksTotal.WithLabelValues("strict").Inc()

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "warden_ratelimit_blocks_total") {
		t.Error("expected warden_ratelimit_blocks_total in /metrics output")
	}
}
