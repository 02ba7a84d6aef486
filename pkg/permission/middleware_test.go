package permission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/warden/pkg/tenant"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(t *testing.T, tc *tenant.Context) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if tc != nil {
		req = req.WithContext(tenant.NewContext(req.Context(), tc))
	}
	return req
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestRequire(t *testing.T) {
	handler := Require(FinancialSettingsEdit, nil)(okHandler())

	t.Run("no tenant context yields 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeErrorCode(t, rec))
	})

	t.Run("unauthenticated context yields 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, &tenant.Context{TenantID: "t1"}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated without permission yields 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleStaff,
		}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decodeErrorCode(t, rec))
	})

	t.Run("authenticated with permission passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleAdmin,
		}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denial hook fires on 403 only", func(t *testing.T) {
		var denied []Permission
		hooked := Require(UsersManage, func(tc *tenant.Context, perm Permission) {
			denied = append(denied, perm)
		})(okHandler())

		rec := httptest.NewRecorder()
		hooked.ServeHTTP(rec, requestAs(t, nil))
		assert.Empty(t, denied, "hook must not fire on 401")

		rec = httptest.NewRecorder()
		hooked.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleClient,
		}))
		assert.Equal(t, []Permission{UsersManage}, denied)

		rec = httptest.NewRecorder()
		hooked.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleAdmin,
		}))
		assert.Len(t, denied, 1, "hook must not fire on allow")
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(tenant.RoleAdmin, tenant.RoleOwner)(okHandler())

	t.Run("listed role passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleOwner,
		}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("super admin is not implicitly listed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
			TenantID: "t1", UserID: "u1", Role: tenant.RoleSuperAdmin,
		}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated yields 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(t, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	handler := RequireSuperAdmin(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
		TenantID: "t1", UserID: "u1", Role: tenant.RoleSuperAdmin, IsSuperAdmin: true,
	}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(t, &tenant.Context{
		TenantID: "t1", UserID: "u1", Role: tenant.RoleAdmin,
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(t, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
