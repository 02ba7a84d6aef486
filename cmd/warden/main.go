package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oakline/warden/pkg/api"
	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/config"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/permission"
	"github.com/oakline/warden/pkg/ratelimit"
	"github.com/oakline/warden/pkg/settings"
	"github.com/oakline/warden/pkg/stepup"
	"github.com/oakline/warden/pkg/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("warden exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Tenant resolution
	tenantStore, err := tenant.NewSQLStore(db)
	if err != nil {
		return err
	}
	cachedTenants, err := tenant.NewCachedStore(tenantStore, cfg.Auth.TenantCacheSize)
	if err != nil {
		return err
	}
	if metrics != nil {
		cachedTenants.WithObservers(
			metrics.TenantCacheHitsTotal.Inc,
			metrics.TenantCacheMissesTotal.Inc,
		)
	}

	var tokens *tenant.TokenManager
	if cfg.Auth.SessionSecret != "" {
		tokens, err = tenant.NewTokenManager(cfg.Auth.SessionSecret, "warden", cfg.Auth.SessionTTL)
		if err != nil {
			return err
		}
	}

	resolver, err := tenant.NewResolver(tokens, cachedTenants, tenant.ResolverOptions{
		CookieName:           cfg.Auth.CookieName,
		DefaultTenantSlug:    cfg.Auth.DefaultTenantSlug,
		TrustedHeaderEnabled: cfg.Auth.TrustedHeaderEnabled,
		BypassEnabled:        cfg.Auth.BypassEnabled && !cfg.IsProduction(),
	})
	if err != nil {
		return err
	}

	// Audit sinks. The DB logger always exists: it backs the search and
	// export endpoints even when write-side auditing is disabled.
	dbAudit, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}
	var auditor audit.Logger = audit.NopLogger{}
	if cfg.Audit.Enabled {
		sinks := []audit.Logger{dbAudit}
		if cfg.Audit.FilePath != "" {
			fileCfg := audit.DefaultFileLoggerConfig()
			fileCfg.BasePath = cfg.Audit.FilePath
			fileAudit, err := audit.NewFileLogger(fileCfg)
			if err != nil {
				return fmt.Errorf("failed to open audit file sink: %w", err)
			}
			sinks = append(sinks, fileAudit)
		}
		auditor = audit.NewMultiLogger(sinks...)
	}
	defer auditor.Close()

	// Rate limiting
	var rlStore ratelimit.Store
	if redisClient != nil {
		rlStore = ratelimit.NewRedisStore(redisClient, "ratelimit")
	} else {
		logger.Warn("no Redis configured, rate limit windows are per-instance")
		rlStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(rlStore, logger, metrics)

	// Settings and the change recorder
	settingsStore, err := settings.NewSQLStore(db)
	if err != nil {
		return err
	}
	recorder := settings.NewRecorder(settingsStore, auditor, logger, metrics, cfg.Audit.WaitForWrites)
	settingsService := settings.NewService(settingsStore, recorder)
	settingsHandlers := settings.NewHandlers(settingsService, settingsStore, auditor, logger)

	// Step-up gate
	secretStore, err := stepup.NewSQLSecretStore(db)
	if err != nil {
		return err
	}
	var grants stepup.GrantStore
	if redisClient != nil {
		grants = stepup.NewRedisGrantStore(redisClient, "stepup")
	} else {
		grants = stepup.NewMemoryGrantStore()
	}
	gate := stepup.NewGate(secretStore, grants, auditor, logger, metrics, cfg.StepUp)

	userStore, err := api.NewSQLUserStore(db)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Dependencies{
		Config:             cfg,
		Logger:             logger,
		Metrics:            metrics,
		Resolver:           resolver,
		Tokens:             tokens,
		Users:              userStore,
		Limiter:            limiter,
		Gate:               gate,
		Auditor:            auditor,
		SettingsHandlers:   settingsHandlers,
		AuditHandlers:      audit.NewHandlers(dbAudit),
		PermissionHandlers: permission.NewHandlers(permission.NewEngine()),
		StepUpHandlers:     stepup.NewHandlers(gate),
	})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "warden-api")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	scheduler := cron.New()
	if cfg.RateLimit.Enabled {
		_, err = scheduler.AddFunc("@every "+cfg.RateLimit.SweepInterval.String(), func() {
			limiter.Sweep(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to schedule rate limit sweep: %w", err)
		}
	}
	if cfg.Audit.Enabled {
		// Nightly retention cleanup, off-peak
		_, err = scheduler.AddFunc("10 3 * * *", func() {
			removed, err := dbAudit.Cleanup(context.Background(), cfg.Audit.RetentionDays)
			if err != nil {
				logger.WithError(err).Error("audit retention cleanup failed")
				return
			}
			logger.WithField("removed", removed).Info("audit retention cleanup completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule audit cleanup: %w", err)
		}
	}
	if metrics != nil {
		_, err = scheduler.AddFunc("@every 30s", func() {
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		})
		if err != nil {
			return fmt.Errorf("failed to schedule db stats collection: %w", err)
		}
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown error")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown error")
		}

		<-scheduler.Stop().Done()

		// In-flight settings writes must land before the process exits
		recorder.Wait()
		return nil
	})

	err = g.Wait()

	if otelProviders != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if otelErr := observability.ShutdownOTel(shutdownCtx, otelProviders, logger); otelErr != nil {
			logger.WithError(otelErr).Warn("OpenTelemetry shutdown error")
		}
	}

	return err
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	opts.PoolSize = cfg.Redis.PoolSize

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected, using distributed stores")
	return client, nil
}
