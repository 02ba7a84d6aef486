package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStore struct {
	tenants map[string]*Tenant
}

func (s *staticStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *staticStore) GetByID(_ context.Context, id string) (*Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, ErrTenantNotFound
}

func testResolver(t *testing.T, opts ResolverOptions) (*Resolver, *TokenManager) {
	t.Helper()
	tokens, err := NewTokenManager("test-secret", "warden", time.Hour)
	require.NoError(t, err)

	store := &staticStore{tenants: map[string]*Tenant{
		"tnt_default": {ID: "tnt_default", Slug: "default", Active: true},
		"tnt_acme":    {ID: "tnt_acme", Slug: "acme", Active: true},
		"tnt_closed":  {ID: "tnt_closed", Slug: "closed", Active: false},
	}}

	if opts.DefaultTenantSlug == "" {
		opts.DefaultTenantSlug = "default"
	}
	resolver, err := NewResolver(tokens, store, opts)
	require.NoError(t, err)
	return resolver, tokens
}

func TestResolver_NoSession(t *testing.T) {
	resolver, _ := testResolver(t, ResolverOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolver_SessionCookie(t *testing.T) {
	resolver, tokens := testResolver(t, ResolverOptions{CookieName: "warden_session"})

	token, err := tokens.Issue("usr_1", "tnt_acme", "acme", "a@acme.test", RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "warden_session", Value: token})

	tc, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "tnt_acme", tc.TenantID)
	assert.Equal(t, "usr_1", tc.UserID)
	assert.Equal(t, RoleAdmin, tc.Role)
	assert.False(t, tc.IsSuperAdmin)
	assert.True(t, tc.Authenticated())
}

func TestResolver_BearerHeader(t *testing.T) {
	resolver, tokens := testResolver(t, ResolverOptions{})

	token, err := tokens.Issue("usr_2", "tnt_acme", "acme", "", RoleSuperAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	tc, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "usr_2", tc.UserID)
	assert.True(t, tc.IsSuperAdmin)
}

func TestResolver_InvalidToken(t *testing.T) {
	resolver, _ := testResolver(t, ResolverOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolver_DefaultTenantFallback(t *testing.T) {
	resolver, tokens := testResolver(t, ResolverOptions{})

	// Token issued without a tenant claim
	token, err := tokens.Issue("usr_3", "", "", "", RoleStaff)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	tc, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "tnt_default", tc.TenantID)
	assert.Equal(t, "default", tc.TenantSlug)
}

func TestResolver_TrustedHeader(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		resolver, _ := testResolver(t, ResolverOptions{})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TrustedTenantHeader, "tnt_acme")

		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("enabled yields anonymous tenant context", func(t *testing.T) {
		resolver, _ := testResolver(t, ResolverOptions{TrustedHeaderEnabled: true})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TrustedTenantHeader, "tnt_acme")

		tc, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "tnt_acme", tc.TenantID)
		assert.Empty(t, tc.UserID)
		assert.False(t, tc.Authenticated())
	})

	t.Run("inactive tenant rejected", func(t *testing.T) {
		resolver, _ := testResolver(t, ResolverOptions{TrustedHeaderEnabled: true})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TrustedTenantHeader, "tnt_closed")

		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, ErrTenantInactive)
	})
}

func TestResolver_Bypass(t *testing.T) {
	resolver, _ := testResolver(t, ResolverOptions{BypassEnabled: true})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	tc, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Empty(t, tc.UserID)
	assert.Equal(t, "tnt_default", tc.TenantID)
}

func TestMiddleware(t *testing.T) {
	t.Run("valid session reaches handler", func(t *testing.T) {
		resolver, tokens := testResolver(t, ResolverOptions{})
		token, err := tokens.Issue("usr_1", "tnt_acme", "acme", "", RoleAdmin)
		require.NoError(t, err)

		var got *Context
		handler := Middleware(resolver, MiddlewareOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "usr_1", got.UserID)
	})

	t.Run("missing session rejected with 401", func(t *testing.T) {
		resolver, _ := testResolver(t, ResolverOptions{})

		var failureReason string
		handler := Middleware(resolver, MiddlewareOptions{
			OnFailure: func(reason string) { failureReason = reason },
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run without a session")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_session", failureReason)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})
}

func TestRequireAuthenticated(t *testing.T) {
	t.Run("anonymous context rejected", func(t *testing.T) {
		handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run for anonymous context")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContext(req.Context(), &Context{TenantID: "tnt_1"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated context passes", func(t *testing.T) {
		called := false
		handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContext(req.Context(), &Context{TenantID: "tnt_1", UserID: "usr_1"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, called)
	})
}
