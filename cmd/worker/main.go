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

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/events"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/telemetry"
)

// errNothingToDo is returned when the configuration produces no item events
// or has no cache to keep in step with them.
var errNothingToDo = errors.New("worker needs STORE_BACKEND=postgres and ITEM_CACHE_ENABLED=true")

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
		log.Error("worker exited", "error", err,
			"store", cfg.StoreBackend,
			"item_cache", cfg.ItemCacheEnabled,
		)
		stop()
		os.Exit(1) //nolint:gocritic // deferred flushes already ran inside run
	}
	log.Info("worker stopped")
}

// run consumes item events until ctx is cancelled. The bus Close, deferred
// here, waits up to 30s for in-flight handlers.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if !cfg.NeedsPostgres() || !cfg.ItemCacheEnabled {
		return errNothingToDo
	}

	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(pool, cfg, log)
	if err != nil {
		return fmt.Errorf("setup event bus: %w", err)
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	a := &app.Application{
		Config:   cfg,
		Db:       pool,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
	}

	if err := registerSubscribers(ctx, a); err != nil {
		return fmt.Errorf("register subscribers: %w", err)
	}

	admin := adminServer(cfg.WorkerAdminAddr, metricsHandler, httpx.HealthChecks{
		Database: pool,
		Redis:    redisClient,
		EventBus: eventBus,
	})
	go func() {
		log.Info("admin listening", "addr", admin.Addr)
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return admin.Shutdown(shutdownCtx)
}

// adminServer exposes health checks and metrics for the worker, which has no API.
func adminServer(addr string, metrics http.Handler, checks httpx.HealthChecks) *http.Server {
	r := chi.NewRouter()
	r.Get("/health", httpx.HealthHandler(checks))
	r.Handle("/metrics", metrics)
	return httpx.NewServer(addr, r)
}
