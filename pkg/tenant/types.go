package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/oakline/warden/pkg/contextkeys"
)

// Role is the closed set of roles a session can carry. Adding a role here
// requires updating the permission tables in pkg/permission; the engine
// denies everything for roles it does not know.
type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleTeamLead   Role = "TEAM_LEAD"
	RoleTeamMember Role = "TEAM_MEMBER"
	RoleStaff      Role = "STAFF"
	RoleClient     Role = "CLIENT"
)

// ValidRole reports whether r is a member of the closed role set
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleSuperAdmin, RoleAdmin, RoleTeamLead, RoleTeamMember, RoleStaff, RoleClient:
		return true
	}
	return false
}

// Context is the request-scoped tenant context. TenantID and UserID are
// empty only in bypass mode or for trusted-header internal calls;
// downstream checks treat an empty UserID as unauthenticated.
type Context struct {
	TenantID     string
	TenantSlug   string
	UserID       string
	UserEmail    string
	Role         Role
	IsSuperAdmin bool
	RequestID    string
	Timestamp    time.Time
}

// Authenticated reports whether the context carries a resolved user identity
func (c *Context) Authenticated() bool {
	return c != nil && c.UserID != ""
}

// Tenant is a row in the tenants table
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

var (
	// ErrNoSession indicates the request carried no session token
	ErrNoSession = errors.New("no session token")
	// ErrInvalidSession indicates the session token failed verification
	ErrInvalidSession = errors.New("invalid session token")
	// ErrTenantNotFound indicates the tenant could not be resolved
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantInactive indicates the tenant exists but is suspended
	ErrTenantInactive = errors.New("tenant is inactive")
)

// FromContext retrieves the resolved tenant context from a request context
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextkeys.TenantKey).(*Context)
	return tc, ok
}

// NewContext stores the tenant context in a request context
func NewContext(ctx context.Context, tc *Context) context.Context {
	return contextkeys.WithTenant(ctx, tc)
}
