package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/inventorystorage/docs/swagger"
	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/events"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/telemetry"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	itemApi "github.com/ghuser/inventorystorage/services/item/application/api"
)

// @title			Inventory Storage API
// @version		1.0
// @description	Tenant-scoped storage for inventory item records.
// @license.name	Apache 2.0
// @license.url	https://www.apache.org/licenses/LICENSE-2.0
// @host			localhost:8080
// @BasePath		/
// @schemes		http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // deferred flushes already ran inside run
	}
	log.Info("server stopped")
}

// run wires the configured backends, serves until ctx is cancelled and then
// drains in-flight requests. Every resource it opens is closed before it
// returns.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	a := &app.Application{
		Config:  cfg,
		Logger:  log,
		Tenants: tenant.NewResolver(cfg.TenantHeader, cfg.SharedTenant),
	}
	var checks httpx.HealthChecks

	if cfg.NeedsPostgres() {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		log.Info("database pool connected")

		eventBus, err := events.NewEventBusWithForwarder(pool, cfg, log)
		if err != nil {
			return fmt.Errorf("setup event bus: %w", err)
		}
		defer eventBus.Close() //nolint:errcheck

		if err := eventBus.StartForwarder(ctx); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}

		a.Db = pool
		a.EventBus = eventBus
		checks.Database = pool
		checks.EventBus = eventBus
	}

	if cfg.NeedsRedis() {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close() //nolint:errcheck
		log.Info("redis connected")

		a.Redis = redisClient
		checks.Redis = redisClient
	}

	log.Info("backends selected",
		"store", cfg.StoreBackend,
		"remap", cfg.RemapBackend,
		"item_cache", a.Redis != nil && cfg.ItemCacheEnabled,
	)

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			TenantHeader:       a.Tenants.Header(),
			RateLimit:          cfg.HTTPRateLimit,
			BodyLimit:          cfg.HTTPMaxBodyBytes,
			HandlerTimeout:     cfg.HTTPHandlerTimeout,
		},
		logger.Middleware(log, a.Tenants.Header()),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if err := itemApi.ItemRoutes(r, a); err != nil {
		return fmt.Errorf("register item routes: %w", err)
	}

	srv := httpx.NewServer(cfg.HTTPAddr, r)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
