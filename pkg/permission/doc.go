// Package permission implements the role/permission engine.
//
// # Overview
//
// Roles and permission keys are closed enumerations. Each role maps to a
// materialized permission list in RolePermissions; SUPER_ADMIN's full set
// is spelled out explicitly rather than inferred at runtime, which keeps
// HasPermission O(1) and the table auditable.
//
// Deny-by-default: a role absent from the table has zero permissions, and
// an unknown permission key is never granted. The engine does not error
// for unknown keys.
//
// # Advisory engine
//
// The Engine's Suggestions, Diff, Validate, and CanGrant helpers drive the
// admin permission editor. Suggestions are advisory only and never grant
// access; their ordering is deterministic (confidence descending, then
// permission key) so UI snapshots stay reproducible.
package permission
