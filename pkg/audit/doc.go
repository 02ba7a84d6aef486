// Package audit records security-relevant events: logins, authorization
// denials, rate limit blocks, settings changes, and step-up outcomes.
//
// Events are appended through the Logger interface. DBLogger writes to the
// audit_events table, FileLogger to a newline-delimited JSON file, and
// MultiLogger fans out to several sinks, continuing past individual
// failures. Rows are append-only; nothing in this package updates or
// deletes an event except the retention cleanup.
//
// The write side is best-effort by contract: callers log and swallow
// errors rather than failing the request that produced the event.
package audit
