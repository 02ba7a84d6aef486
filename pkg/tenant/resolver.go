package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oakline/warden/pkg/contextkeys"
)

// TrustedTenantHeader carries the tenant ID on internal service calls.
// Only honored when the resolver is configured to trust it.
const TrustedTenantHeader = "X-Tenant-ID"

// ResolverOptions configures the resolver
type ResolverOptions struct {
	// CookieName is the session cookie to read
	CookieName string
	// DefaultTenantSlug is the fallback tenant for sessions without a
	// tenant claim
	DefaultTenantSlug string
	// TrustedHeaderEnabled allows X-Tenant-ID from internal callers to
	// produce an anonymous tenant-scoped context
	TrustedHeaderEnabled bool
	// BypassEnabled skips session verification entirely. Never enable
	// in production; config validation rejects that combination.
	BypassEnabled bool
}

// Resolver produces a request-scoped Context from an inbound request
type Resolver struct {
	tokens *TokenManager
	store  Store
	opts   ResolverOptions
}

// NewResolver creates a resolver. The token manager may be nil only when
// bypass is enabled.
func NewResolver(tokens *TokenManager, store Store, opts ResolverOptions) (*Resolver, error) {
	if tokens == nil && !opts.BypassEnabled {
		return nil, fmt.Errorf("token manager is required unless bypass is enabled")
	}
	if opts.CookieName == "" {
		opts.CookieName = "warden_session"
	}
	return &Resolver{tokens: tokens, store: store, opts: opts}, nil
}

// Resolve constructs the tenant context for a request or fails closed.
//
// Resolution order: bypass flag, session token (cookie or Bearer header),
// trusted tenant header. A session whose tenant claim is empty falls back
// to the configured default tenant.
func (rs *Resolver) Resolve(r *http.Request) (*Context, error) {
	now := time.Now()
	requestID := contextkeys.GetRequestID(r.Context())

	if rs.opts.BypassEnabled {
		// Dev-only anonymous context. TenantID stays empty unless a
		// default tenant is configured and resolvable.
		tc := &Context{
			Role:      RoleAdmin,
			RequestID: requestID,
			Timestamp: now,
		}
		if t, err := rs.defaultTenant(r); err == nil {
			tc.TenantID = t.ID
			tc.TenantSlug = t.Slug
		}
		return tc, nil
	}

	tokenString := rs.extractToken(r)
	if tokenString == "" {
		if rs.opts.TrustedHeaderEnabled {
			if headerTenant := r.Header.Get(TrustedTenantHeader); headerTenant != "" {
				return rs.resolveTrustedHeader(r, headerTenant, requestID, now)
			}
		}
		return nil, ErrNoSession
	}

	claims, err := rs.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	// Unknown roles are carried through unchanged; the permission engine
	// denies everything for roles outside its tables.
	role := Role(claims.Role)

	tc := &Context{
		TenantID:     claims.TenantID,
		TenantSlug:   claims.TenantSlug,
		UserID:       claims.UserID,
		UserEmail:    claims.Email,
		Role:         role,
		IsSuperAdmin: role == RoleSuperAdmin,
		RequestID:    requestID,
		Timestamp:    now,
	}

	if tc.TenantID == "" {
		t, err := rs.defaultTenant(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default tenant: %w", err)
		}
		tc.TenantID = t.ID
		tc.TenantSlug = t.Slug
	}

	return tc, nil
}

// resolveTrustedHeader builds an anonymous tenant-scoped context for
// internal calls that identify the tenant but carry no user session.
func (rs *Resolver) resolveTrustedHeader(r *http.Request, tenantID, requestID string, now time.Time) (*Context, error) {
	if rs.store != nil {
		t, err := rs.store.GetByID(r.Context(), tenantID)
		if err != nil {
			return nil, fmt.Errorf("trusted header tenant: %w", err)
		}
		if !t.Active {
			return nil, ErrTenantInactive
		}
		return &Context{
			TenantID:   t.ID,
			TenantSlug: t.Slug,
			RequestID:  requestID,
			Timestamp:  now,
		}, nil
	}
	return &Context{
		TenantID:  tenantID,
		RequestID: requestID,
		Timestamp: now,
	}, nil
}

func (rs *Resolver) defaultTenant(r *http.Request) (*Tenant, error) {
	if rs.store == nil || rs.opts.DefaultTenantSlug == "" {
		return nil, ErrTenantNotFound
	}
	t, err := rs.store.GetBySlug(r.Context(), rs.opts.DefaultTenantSlug)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}
	return t, nil
}

// extractToken reads the session token from the cookie or Authorization header
func (rs *Resolver) extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(rs.opts.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// IsAuthError reports whether err maps to a 401 response
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrInvalidSession)
}
