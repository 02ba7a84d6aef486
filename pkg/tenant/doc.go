// Package tenant resolves the caller's tenant, user, and role from inbound
// requests before any handler logic runs.
//
// # Overview
//
// Every request passes through the resolver, which produces a request-scoped
// Context from the session token (cookie or Authorization header). The
// context is never persisted; it is constructed once per request and
// discarded at response time.
//
// Resolution order:
//
//  1. Dev bypass flag (non-production only) yields an anonymous context
//  2. Session JWT from the configured cookie or a Bearer header
//  3. Trusted X-Tenant-ID header for internal service calls (when enabled)
//
// A session without an explicit tenant claim falls back to the configured
// default tenant, resolved through the SQL-backed store and cached in an
// LRU so the common path stays off the database.
//
// # Fail-closed
//
// Middleware rejects with 401 whenever a context cannot be constructed.
// Downstream components must treat a context with an empty UserID as
// unauthenticated.
package tenant
