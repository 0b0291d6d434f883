package app

import (
	"github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/events"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/tenant"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to all service ItemRoutes calls during server initialization.
//
// Db, EventBus and Redis are nil when the configured backends do not need
// them (STORE_BACKEND=memory, REMAP_BACKEND=memory, ITEM_CACHE_ENABLED=false).
//
// Logging: app.Logger is backed by a trace-aware handler. Use slog's context
// methods and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "processing item", "item_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config   *config.Config
	Db       *database.Database
	Logger   logger.Logger
	EventBus *events.EventBus
	Redis    *cache.RedisClient
	Tenants  *tenant.Resolver
}
