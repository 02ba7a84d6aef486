// Package api wires the HTTP surface: the gorilla/mux router, the
// middleware chain (request-id, tenant resolution, permission checks,
// rate limiting, step-up), and the credential login endpoint that issues
// session tokens.
package api
