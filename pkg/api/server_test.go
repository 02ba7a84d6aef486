package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/config"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/permission"
	"github.com/oakline/warden/pkg/ratelimit"
	"github.com/oakline/warden/pkg/settings"
	"github.com/oakline/warden/pkg/stepup"
	"github.com/oakline/warden/pkg/tenant"
)

// In-memory doubles for the SQL-backed stores, so the full pipeline runs
// under httptest without a database.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*User)}
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

type memAuditLog struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (l *memAuditLog) Log(_ context.Context, event *audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *memAuditLog) Close() error { return nil }

func (l *memAuditLog) Search(_ context.Context, filter audit.SearchFilter) ([]*audit.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*audit.Event
	for _, e := range l.events {
		if filter.TenantID != "" && e.TenantID != filter.TenantID {
			continue
		}
		if len(filter.EventTypes) > 0 {
			match := false
			for _, et := range filter.EventTypes {
				if e.EventType == et {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *memAuditLog) byType(eventType audit.EventType) []*audit.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*audit.Event
	for _, e := range l.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (l *memAuditLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type memSettingsStore struct {
	mu   sync.Mutex
	docs map[string]*settings.Settings
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{docs: make(map[string]*settings.Settings)}
}

func (s *memSettingsStore) Get(_ context.Context, tenantID string, category settings.Category) (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[tenantID+"/"+string(category)]
	if !ok {
		return nil, settings.ErrNotFound
	}
	return doc, nil
}

func (s *memSettingsStore) Upsert(_ context.Context, doc *settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.TenantID+"/"+string(doc.Category)] = doc
	return nil
}

type memDiffStore struct {
	mu      sync.Mutex
	inserts []*settings.ChangeDiff
}

func (s *memDiffStore) Insert(_ context.Context, diff *settings.ChangeDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, diff)
	return nil
}

func (s *memDiffStore) List(_ context.Context, tenantID string, category settings.Category, _ int) ([]*settings.ChangeDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*settings.ChangeDiff
	for _, d := range s.inserts {
		if d.TenantID == tenantID && d.Category == category {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memDiffStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

type memSecretStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

func newMemSecretStore() *memSecretStore {
	return &memSecretStore{secrets: make(map[string]string)}
}

func (s *memSecretStore) GetSecret(_ context.Context, tenantID, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[tenantID+":"+userID], nil
}

func (s *memSecretStore) SaveSecret(_ context.Context, tenantID, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[tenantID+":"+userID] = secret
	return nil
}

type fixtures struct {
	cfg      *config.Config
	tokens   *tenant.TokenManager
	users    *memUserStore
	auditLog *memAuditLog
	diffs    *memDiffStore
	server   *Server
}

func testServerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", HealthPort: "9090"},
		Auth: config.AuthConfig{
			SessionSecret:   "test-secret-0123456789abcdef0123456789abcdef",
			SessionTTL:      time.Hour,
			CookieName:      "warden_session",
			Environment:     "development",
			TenantCacheSize: 64,
		},
		StepUp: config.StepUpConfig{
			Issuer:       "warden-test",
			GrantTTL:     15 * time.Minute,
			ChallengeTTL: 5 * time.Minute,
		},
		Audit:     config.AuditConfig{Enabled: true, RetentionDays: 90, WaitForWrites: true},
		RateLimit: config.RateLimitConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T) *fixtures {
	t.Helper()
	cfg := testServerConfig()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	tokens, err := tenant.NewTokenManager(cfg.Auth.SessionSecret, "warden", cfg.Auth.SessionTTL)
	require.NoError(t, err)
	resolver, err := tenant.NewResolver(tokens, nil, tenant.ResolverOptions{
		CookieName: cfg.Auth.CookieName,
	})
	require.NoError(t, err)

	auditLog := &memAuditLog{}
	users := newMemUserStore()
	diffs := &memDiffStore{}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), logger, nil)

	recorder := settings.NewRecorder(diffs, auditLog, logger, nil, true)
	settingsService := settings.NewService(newMemSettingsStore(), recorder)
	settingsHandlers := settings.NewHandlers(settingsService, diffs, auditLog, logger)

	gate := stepup.NewGate(newMemSecretStore(), stepup.NewMemoryGrantStore(), auditLog, logger, nil, cfg.StepUp)

	server := NewServer(Dependencies{
		Config:             cfg,
		Logger:             logger,
		Resolver:           resolver,
		Tokens:             tokens,
		Users:              users,
		Limiter:            limiter,
		Gate:               gate,
		Auditor:            auditLog,
		SettingsHandlers:   settingsHandlers,
		AuditHandlers:      audit.NewHandlers(auditLog),
		PermissionHandlers: permission.NewHandlers(permission.NewEngine()),
		StepUpHandlers:     stepup.NewHandlers(gate),
	})

	return &fixtures{
		cfg:      cfg,
		tokens:   tokens,
		users:    users,
		auditLog: auditLog,
		diffs:    diffs,
		server:   server,
	}
}

func (f *fixtures) addUser(t *testing.T, email, password string, role tenant.Role) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{
		ID:           "user-" + strings.Split(email, "@")[0],
		TenantID:     "tenant-1",
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
	}
	f.users.mu.Lock()
	f.users.users[strings.ToLower(email)] = user
	f.users.mu.Unlock()
	return user
}

func (f *fixtures) session(t *testing.T, user *User) string {
	t.Helper()
	token, err := f.tokens.Issue(user.ID, user.TenantID, "", user.Email, user.Role)
	require.NoError(t, err)
	return token
}

func (f *fixtures) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func request(method, path, token, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func TestServer_UnauthenticatedRequest(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(request(http.MethodGet, "/api/v1/settings/booking", "", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httputil.CodeUnauthorized, decodeErrorCode(t, rec))
	assert.Zero(t, f.auditLog.count(), "rejected requests must not produce audit rows")
	assert.Zero(t, f.diffs.count())
}

func TestServer_PermissionDenied(t *testing.T) {
	f := newTestServer(t)
	staff := f.addUser(t, "staff@example.com", "pw", tenant.RoleStaff)
	token := f.session(t, staff)

	t.Run("staff cannot read financial settings", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/settings/financial", token, ""))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeForbidden, decodeErrorCode(t, rec))
	})

	t.Run("audit endpoints record the denial", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/audit/events", token, ""))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		denials := f.auditLog.byType(audit.EventTypeAuthzDenied)
		require.Len(t, denials, 1)
		assert.Equal(t, staff.ID, denials[0].UserID)
		assert.Equal(t, string(permission.SecuritySettingsView), denials[0].Resource)
	})
}

func TestServer_SettingsUpdate(t *testing.T) {
	f := newTestServer(t)
	admin := f.addUser(t, "admin@example.com", "pw", tenant.RoleAdmin)
	token := f.session(t, admin)

	rec := f.do(request(http.MethodPut, "/api/v1/settings/financial", token,
		`{"currency":"USD","tax_rate":19}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, 1, f.diffs.count(), "exactly one diff row per update")
	diff := f.diffs.inserts[0]
	assert.Equal(t, "tenant-1", diff.TenantID)
	assert.Nil(t, diff.Before)
	assert.Equal(t, "USD", diff.After["currency"])

	changed := f.auditLog.byType(audit.EventTypeSettingsChanged)
	require.Len(t, changed, 1, "exactly one audit event per update")
	assert.Equal(t, admin.ID, changed[0].UserID)
	assert.ElementsMatch(t, []string{"currency", "tax_rate"}, changed[0].Details["changed_fields"])

	t.Run("read back", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/settings/financial", token, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "USD")
	})

	t.Run("history lists the change", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/settings/financial/history", token, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":1`)
	})
}

func TestServer_ExportRateLimit(t *testing.T) {
	f := newTestServer(t)
	admin := f.addUser(t, "admin@example.com", "pw", tenant.RoleAdmin)
	token := f.session(t, admin)

	for i := 0; i < 5; i++ {
		rec := f.do(request(http.MethodGet, "/api/v1/settings/booking/export", token, ""))
		require.Equal(t, http.StatusOK, rec.Code, "call %d should pass", i+1)
	}

	rec := f.do(request(http.MethodGet, "/api/v1/settings/booking/export", token, ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, httputil.CodeRateLimited, decodeErrorCode(t, rec))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	retryAfter := rec.Header().Get("Retry-After")
	require.NotEmpty(t, retryAfter)
	seconds, err := strconv.Atoi(retryAfter)
	require.NoError(t, err)
	assert.LessOrEqual(t, seconds, 60)
}

func TestServer_StepUpGate(t *testing.T) {
	f := newTestServer(t)
	root := f.addUser(t, "root@example.com", "pw", tenant.RoleSuperAdmin)
	token := f.session(t, root)

	t.Run("non-sensitive categories skip the gate", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/settings/booking", token, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	rec := f.do(request(http.MethodGet, "/api/v1/settings/financial", token, ""))
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)

	var challenge stepup.ChallengeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&challenge))
	assert.Equal(t, httputil.CodeStepUpRequired, challenge.Code)
	require.NotEmpty(t, challenge.ChallengeID)

	rec = f.do(request(http.MethodPost, "/api/v1/stepup/enroll", token, "{}"))
	require.Equal(t, http.StatusOK, rec.Code)
	var enrollment stepup.Enrollment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&enrollment))
	require.NotEmpty(t, enrollment.Secret)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	rec = f.do(request(http.MethodPost, "/api/v1/stepup/verify", token, `{"code":"`+code+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(request(http.MethodGet, "/api/v1/settings/financial", token, ""))
	assert.Equal(t, http.StatusOK, rec.Code, "verified super admin must pass the gate")

	t.Run("revoke closes the gate again", func(t *testing.T) {
		rec := f.do(request(http.MethodPost, "/api/v1/stepup/revoke", token, ""))
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(request(http.MethodGet, "/api/v1/settings/financial", token, ""))
		assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	})
}

func TestServer_Permissions(t *testing.T) {
	f := newTestServer(t)
	member := f.addUser(t, "member@example.com", "pw", tenant.RoleTeamMember)
	token := f.session(t, member)

	t.Run("list own permissions", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/permissions", token, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "booking.settings.view")
	})

	t.Run("suggestions are advisory output", func(t *testing.T) {
		rec := f.do(request(http.MethodGet, "/api/v1/permissions/suggestions", token, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "suggestions")
	})

	t.Run("validate a proposed set", func(t *testing.T) {
		rec := f.do(request(http.MethodPost, "/api/v1/permissions/validate", token,
			`{"permissions":["users.manage"]}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"isValid":false`)
	})
}

func TestServer_AuditRead(t *testing.T) {
	f := newTestServer(t)
	admin := f.addUser(t, "admin@example.com", "pw", tenant.RoleAdmin)
	token := f.session(t, admin)

	rec := f.do(request(http.MethodPut, "/api/v1/settings/org", token, `{"name":"Acme"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(request(http.MethodGet, "/api/v1/audit/events", token, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "settings.changed")
}
