package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.HealthPort = "9090"
	cfg.Database.URL = "postgres://localhost/warden"
	cfg.Auth.SessionSecret = "secret"
	cfg.Auth.Environment = "development"
	cfg.Auth.TenantCacheSize = 64
	cfg.StepUp.GrantTTL = 15 * time.Minute
	cfg.StepUp.ChallengeTTL = 15 * time.Minute
	cfg.Audit.RetentionDays = 90
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden")
	t.Setenv("WARDEN_SESSION_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "warden_session", cfg.Auth.CookieName)
	assert.Equal(t, "default", cfg.Auth.DefaultTenantSlug)
	assert.False(t, cfg.Auth.BypassEnabled)
	assert.Equal(t, 15*time.Minute, cfg.StepUp.GrantTTL)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Hour, cfg.RateLimit.SweepInterval)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden")
	t.Setenv("WARDEN_SESSION_SECRET", "test-secret")
	t.Setenv("WARDEN_PORT", "8443")
	t.Setenv("WARDEN_STEPUP_GRANT_TTL", "5m")
	t.Setenv("WARDEN_AUDIT_WAIT_FOR_WRITES", "true")
	t.Setenv("WARDEN_TRUSTED_TENANT_HEADER", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8443", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.StepUp.GrantTTL)
	assert.True(t, cfg.Audit.WaitForWrites)
	assert.True(t, cfg.Auth.TrustedHeaderEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "missing postgres",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "postgres URL is required",
		},
		{
			name:    "missing session secret",
			mutate:  func(c *Config) { c.Auth.SessionSecret = "" },
			wantErr: "session secret is required",
		},
		{
			name: "bypass allowed outside production without secret",
			mutate: func(c *Config) {
				c.Auth.SessionSecret = ""
				c.Auth.BypassEnabled = true
			},
		},
		{
			name: "bypass rejected in production",
			mutate: func(c *Config) {
				c.Auth.BypassEnabled = true
				c.Auth.Environment = "production"
			},
			wantErr: "must not be enabled in production",
		},
		{
			name:    "non-positive grant TTL",
			mutate:  func(c *Config) { c.StepUp.GrantTTL = 0 },
			wantErr: "grant TTL must be positive",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.IsProduction())
	cfg.Auth.Environment = "Production"
	assert.True(t, cfg.IsProduction())
}
