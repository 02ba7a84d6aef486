// Package config loads application configuration from environment variables
// with validated, fail-fast defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oakline/warden/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	StepUp        StepUpConfig
	Audit         AuditConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when URL is
// empty the rate limiter and step-up grant store use in-memory backends.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds session token and tenant resolution configuration
type AuthConfig struct {
	// SessionSecret signs and verifies session JWTs (HS256)
	SessionSecret string
	// SessionTTL bounds issued session tokens
	SessionTTL time.Duration
	// CookieName is the session cookie read by the resolver
	CookieName string
	// DefaultTenantSlug is the fallback tenant for sessions without an
	// explicit tenant claim
	DefaultTenantSlug string
	// TrustedHeaderEnabled allows X-Tenant-ID from internal callers
	TrustedHeaderEnabled bool
	// BypassEnabled skips authentication entirely. Only honored in
	// non-production environments.
	BypassEnabled bool
	// Environment is one of development, staging, production
	Environment string
	// TenantCacheSize bounds the default tenant LRU cache
	TenantCacheSize int
}

// StepUpConfig holds step-up verification configuration
type StepUpConfig struct {
	// Issuer appears in provisioned TOTP URIs
	Issuer string
	// GrantTTL is how long a successful verification is honored
	GrantTTL time.Duration
	// ChallengeTTL is how long an issued challenge may be answered
	ChallengeTTL time.Duration
}

// AuditConfig holds audit sink configuration
type AuditConfig struct {
	// Enabled toggles audit recording; disabled uses the no-op logger
	Enabled bool
	// FilePath, when set, adds an NDJSON file sink alongside the database
	FilePath string
	// RetentionDays bounds stored events before cleanup removes them
	RetentionDays int
	// WaitForWrites makes the settings recorder block until both the
	// diff row and the audit event land. Needed in function-scoped
	// runtimes where the process may be frozen after the response.
	WaitForWrites bool
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	// Enabled toggles rate limiting globally
	Enabled bool
	// SweepInterval is the cron cadence for purging expired windows
	SweepInterval time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("WARDEN_HOST", "0.0.0.0"),
			Port:            getEnv("WARDEN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("WARDEN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("WARDEN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("WARDEN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("WARDEN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("WARDEN_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("WARDEN_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("WARDEN_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("WARDEN_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("WARDEN_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("WARDEN_REDIS_URL", ""),
			Password: getEnv("WARDEN_REDIS_PASSWORD", ""),
			DB:       getEnvInt("WARDEN_REDIS_DB", 0),
			PoolSize: getEnvInt("WARDEN_REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			SessionSecret:        getEnv("WARDEN_SESSION_SECRET", ""),
			SessionTTL:           getEnvDuration("WARDEN_SESSION_TTL", 24*time.Hour),
			CookieName:           getEnv("WARDEN_SESSION_COOKIE", "warden_session"),
			DefaultTenantSlug:    getEnv("WARDEN_DEFAULT_TENANT", "default"),
			TrustedHeaderEnabled: getEnvBool("WARDEN_TRUSTED_TENANT_HEADER", false),
			BypassEnabled:        getEnvBool("WARDEN_AUTH_BYPASS", false),
			Environment:          getEnv("WARDEN_ENV", "development"),
			TenantCacheSize:      getEnvInt("WARDEN_TENANT_CACHE_SIZE", 1024),
		},
		StepUp: StepUpConfig{
			Issuer:       getEnv("WARDEN_STEPUP_ISSUER", "warden"),
			GrantTTL:     getEnvDuration("WARDEN_STEPUP_GRANT_TTL", 15*time.Minute),
			ChallengeTTL: getEnvDuration("WARDEN_STEPUP_CHALLENGE_TTL", 15*time.Minute),
		},
		Audit: AuditConfig{
			Enabled:       getEnvBool("WARDEN_AUDIT_ENABLED", true),
			FilePath:      getEnv("WARDEN_AUDIT_FILE", ""),
			RetentionDays: getEnvInt("WARDEN_AUDIT_RETENTION_DAYS", 90),
			WaitForWrites: getEnvBool("WARDEN_AUDIT_WAIT_FOR_WRITES", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("WARDEN_RATELIMIT_ENABLED", true),
			SweepInterval: getEnvDuration("WARDEN_RATELIMIT_SWEEP_INTERVAL", time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("WARDEN_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("WARDEN_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("WARDEN_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("WARDEN_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("WARDEN_OTEL_SERVICE_NAME", "warden"),
			OTelServiceVersion: getEnv("WARDEN_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("WARDEN_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.SessionSecret == "" && !c.Auth.BypassEnabled {
		return fmt.Errorf("session secret is required when auth bypass is disabled")
	}
	if c.Auth.BypassEnabled && c.Auth.Environment == "production" {
		return fmt.Errorf("auth bypass must not be enabled in production")
	}
	if c.Auth.TenantCacheSize <= 0 {
		return fmt.Errorf("tenant cache size must be positive")
	}

	if c.StepUp.GrantTTL <= 0 {
		return fmt.Errorf("step-up grant TTL must be positive")
	}
	if c.StepUp.ChallengeTTL <= 0 {
		return fmt.Errorf("step-up challenge TTL must be positive")
	}

	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// IsProduction reports whether the service runs with production hardening
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Auth.Environment) == "production"
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
