package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	pkgcache "github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

// CacheSync writes cached reads that never outlive the record they copy.
//
// Every write is checked against the store afterwards: if the record changed
// or vanished between the read that produced the snapshot and the cache write,
// the entry is dropped again. A change committed after that check is followed
// by its own eviction, so a stale entry cannot survive either ordering.
type CacheSync struct {
	repo  repositories.ItemRepository
	cache *pkgcache.ItemCache
	log   logger.Logger
}

// NewCacheSync returns a CacheSync over repo and itemCache.
func NewCacheSync(repo repositories.ItemRepository, itemCache *pkgcache.ItemCache, log logger.Logger) *CacheSync {
	if log == nil {
		log = logger.Discard()
	}
	return &CacheSync{repo: repo, cache: itemCache, log: log}
}

// Refresh rereads the item the client addresses as id and caches it, or
// evicts the entry when the store no longer holds the item.
func (c *CacheSync) Refresh(ctx context.Context, tenant string, id uuid.UUID) error {
	stored, err := c.current(ctx, tenant, id)
	if err != nil {
		return err
	}
	if stored == nil {
		return c.cache.Delete(ctx, tenant, id)
	}
	return c.Warm(ctx, tenant, id, stored)
}

// Warm caches snapshot under id, the identifier the client addresses it by.
// snapshot must have been read from the store; its own ID is ignored.
func (c *CacheSync) Warm(ctx context.Context, tenant string, id uuid.UUID, snapshot *models.Item) error {
	entry := toCached(tenant, snapshot)
	entry.ID = id
	if err := c.cache.Set(ctx, entry); err != nil {
		return err
	}

	stored, err := c.current(ctx, tenant, id)
	if err != nil {
		// Unverified entries are not kept.
		return errors.Join(err, c.cache.Delete(ctx, tenant, id))
	}
	if stored == nil || !sameState(snapshot, stored) {
		c.log.DebugContext(ctx, "cached item changed while warming, evicting",
			"tenant", tenant,
			"item_id", id,
		)
		return c.cache.Delete(ctx, tenant, id)
	}
	return nil
}

// current returns the raw record the client addresses as id, or nil when the
// tenant holds none.
func (c *CacheSync) current(ctx context.Context, tenant string, id uuid.UUID) (*models.Item, error) {
	matches, err := c.repo.Find(ctx, tenant, repositories.ByID(id))
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, ambiguous(id, len(matches))
	}
}

// sameState compares every field a cached read exposes, ignoring the key.
func sameState(a, b *models.Item) bool {
	return a.InstanceID == b.InstanceID &&
		a.Title == b.Title &&
		a.Barcode == b.Barcode &&
		a.Status == b.Status &&
		a.MaterialTypeID == b.MaterialTypeID &&
		a.Location == b.Location &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

