// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks, and panic recovery for the
// authorization pipeline.
//
// # Logging
//
// Structured JSON logging over logrus. Loggers flow through the request
// context; FromContext enriches them with request_id and user_id:
//
//	logger := observability.FromContext(ctx)
//	logger.WithField("tenant_id", tc.TenantID).Info("settings updated")
//
// # Metrics
//
// All pipeline metrics are registered against a single Prometheus registry:
// HTTP request counters and latency, authentication failures, permission
// denials, rate limit blocks, audit write failures, and step-up challenges.
//
// # Health
//
// Liveness and readiness probes on the health port. Readiness checks
// Postgres and Redis; Redis being down degrades rather than fails the
// service because the rate limiter falls back to the in-memory store.
package observability
