package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/events"
	"github.com/ghuser/inventorystorage/pkg/logger"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
	itemEvents "github.com/ghuser/inventorystorage/services/item/domain/events"
	"github.com/ghuser/inventorystorage/services/item/infrastructure/persistence/postgres"
)

type subscription struct {
	topic   string
	handler events.Handler
}

// registerSubscribers wires all domain event handlers.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	itemCache := cache.NewItemCache(a.Redis)
	cacheSync := appsvcs.NewCacheSync(postgres.NewItemRepository(a.Db, nil), itemCache, a.Logger)
	subs := []subscription{
		{itemEvents.TopicItemCreated, handleItemCreated(cacheSync, a.Logger)},
		{itemEvents.TopicItemUpdated, handleItemUpdated(cacheSync, a.Logger)},
		{itemEvents.TopicItemDeleted, handleItemDeleted(itemCache, a.Logger)},
		{itemEvents.TopicItemsPurged, handleItemsPurged(itemCache, a.Logger)},
	}

	topics := make([]string, 0, len(subs))
	for _, s := range subs {
		errCh, err := a.EventBus.Subscribe(ctx, s.topic, s.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s.topic, err)
		}

		// Drain subscriber errors in background so the channel never blocks.
		go func(topic string) {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error",
					"topic", topic,
					"error", err,
				)
			}
		}(s.topic)
		topics = append(topics, s.topic)
	}

	a.Logger.Info("event subscribers registered", "topics", topics)
	return nil
}

// handleItemCreated caches the new item under its client-visible id so
// subsequent GetByID calls are served from cache. The store is reread rather
// than trusting the event: a later replace or delete may already have run.
func handleItemCreated(cacheSync *appsvcs.CacheSync, log logger.Logger) events.Handler {
	return func(ctx context.Context, d events.Delivery) error {
		var evt itemEvents.ItemCreatedEvent
		if err := d.Decode(&evt); err != nil {
			return err
		}
		return refresh(ctx, cacheSync, log, d.Topic, evt.Tenant, evt.ItemID)
	}
}

// handleItemUpdated replaces the cached read of a replaced item.
func handleItemUpdated(cacheSync *appsvcs.CacheSync, log logger.Logger) events.Handler {
	return func(ctx context.Context, d events.Delivery) error {
		var evt itemEvents.ItemUpdatedEvent
		if err := d.Decode(&evt); err != nil {
			return err
		}
		return refresh(ctx, cacheSync, log, d.Topic, evt.Tenant, evt.ItemID)
	}
}

// refresh is best-effort: a failure is logged and the event acknowledged,
// since the API falls back to the store on a cache miss.
func refresh(ctx context.Context, cacheSync *appsvcs.CacheSync, log logger.Logger, topic, tenant string, id uuid.UUID) error {
	if err := cacheSync.Refresh(ctx, tenant, id); err != nil {
		log.WarnContext(ctx, "cache refresh failed",
			"topic", topic, "item_id", id, "tenant", tenant, "error", err)
		return nil
	}
	log.InfoContext(ctx, "cache refreshed", "topic", topic, "item_id", id, "tenant", tenant)
	return nil
}

// handleItemDeleted evicts the cached read of a deleted item. Eviction
// failures are returned so the bus retries; a stale entry would serve a
// deleted item for up to a day.
func handleItemDeleted(itemCache *cache.ItemCache, log logger.Logger) events.Handler {
	return func(ctx context.Context, d events.Delivery) error {
		var evt itemEvents.ItemDeletedEvent
		if err := d.Decode(&evt); err != nil {
			return err
		}
		if err := itemCache.Delete(ctx, evt.Tenant, evt.ItemID); err != nil {
			return fmt.Errorf("evict %s: %w", evt.ItemID, err)
		}
		log.InfoContext(ctx, "cache evicted", "item_id", evt.ItemID, "tenant", evt.Tenant)
		return nil
	}
}

// handleItemsPurged drops every cached read of the tenant.
func handleItemsPurged(itemCache *cache.ItemCache, log logger.Logger) events.Handler {
	return func(ctx context.Context, d events.Delivery) error {
		var evt itemEvents.ItemsPurgedEvent
		if err := d.Decode(&evt); err != nil {
			return err
		}
		removed, err := itemCache.DeleteTenant(ctx, evt.Tenant)
		if err != nil {
			return fmt.Errorf("purge tenant %s: %w", evt.Tenant, err)
		}
		log.InfoContext(ctx, "cache purged", "tenant", evt.Tenant, "keys", removed)
		return nil
	}
}
