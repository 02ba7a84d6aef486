// Package settings stores per-tenant configuration documents by category
// and records every mutation.
//
// Each successful update writes the new document to tenant_settings and
// then hands a change description to the Recorder, which persists a
// setting_change_diffs row and an audit event. The two recorder writes run
// concurrently and are best-effort: either may fail without affecting the
// other or the response the client already earned. The recorder runs only
// after the primary write has committed.
package settings
