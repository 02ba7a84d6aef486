// Package ratelimit provides a fixed-window request throttle shared by the
// sensitive mutation endpoints.
//
// Counters live in a pluggable Store: an in-memory map for single-instance
// deployments and a Redis-backed store for shared limits across instances.
// The in-memory store is process-local, so without Redis the limits are
// enforced per instance, not globally.
//
// Each named Policy carries its own limit, window, and failure mode. A
// policy marked fail-closed denies requests when the store errors; all
// others fail open.
package ratelimit
