package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ItemCacheTTL is the time-to-live for cached items.
	ItemCacheTTL = 24 * time.Hour

	itemCacheKeyPrefix = "item"
	scanBatch          = 200

	// uuidGlob matches exactly one canonical UUID, so a tenant's pattern
	// cannot reach the keys of a tenant whose name extends it past a ':'.
	uuidGlob = "????????-????-????-????-????????????"
)

// CachedItem is the denormalized read model stored in Redis.
// ID is always the identifier the client addresses the item by, never a
// store-assigned substitute.
type CachedItem struct {
	ID             uuid.UUID `json:"id"`
	Tenant         string    `json:"tenant"`
	InstanceID     uuid.UUID `json:"instance_id"`
	Title          string    `json:"title"`
	Barcode        string    `json:"barcode"`
	Status         string    `json:"status"`
	MaterialTypeID uuid.UUID `json:"material_type_id"`
	Location       string    `json:"location"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ItemCache provides structured read/write operations for item cache entries.
// Keys are scoped by tenant to prevent cross-tenant data leakage.
// Key format: "item:{tenant}:{itemID}"
type ItemCache struct {
	client *RedisClient
}

// NewItemCache creates a new ItemCache backed by the given RedisClient.
func NewItemCache(r *RedisClient) *ItemCache {
	return &ItemCache{client: r}
}

// Get retrieves a cached item by tenant + item ID.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *ItemCache) Get(ctx context.Context, tenant string, itemID uuid.UUID) (*CachedItem, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(tenant, itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil // key not found
	}

	id, err := uuid.Parse(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse id: %w", err)
	}
	instanceID, err := uuid.Parse(vals["instance_id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse instance_id: %w", err)
	}
	materialTypeID := uuid.Nil
	if v := vals["material_type_id"]; v != "" {
		if materialTypeID, err = uuid.Parse(v); err != nil {
			return nil, fmt.Errorf("cache parse material_type_id: %w", err)
		}
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, vals["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}

	return &CachedItem{
		ID:             id,
		Tenant:         vals["tenant"],
		InstanceID:     instanceID,
		Title:          vals["title"],
		Barcode:        vals["barcode"],
		Status:         vals["status"],
		MaterialTypeID: materialTypeID,
		Location:       vals["location"],
		UpdatedAt:      updatedAt,
	}, nil
}

// Set writes a cached item as a Redis hash with a 24-hour TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *ItemCache) Set(ctx context.Context, item *CachedItem) error {
	key := c.key(item.Tenant, item.ID)
	materialTypeID := ""
	if item.MaterialTypeID != uuid.Nil {
		materialTypeID = item.MaterialTypeID.String()
	}

	pipe := c.client.Client().TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"id", item.ID.String(),
		"tenant", item.Tenant,
		"instance_id", item.InstanceID.String(),
		"title", item.Title,
		"barcode", item.Barcode,
		"status", item.Status,
		"material_type_id", materialTypeID,
		"location", item.Location,
		"updated_at", item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, ItemCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached item.
func (c *ItemCache) Delete(ctx context.Context, tenant string, itemID uuid.UUID) error {
	if err := c.client.Client().Del(ctx, c.key(tenant, itemID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeleteTenant removes every cached item of tenant and returns how many keys
// were dropped. Keys are found with SCAN so large tenants do not block Redis.
func (c *ItemCache) DeleteTenant(ctx context.Context, tenant string) (int64, error) {
	rdb := c.client.Client()
	match := fmt.Sprintf("%s:%s:%s", itemCacheKeyPrefix, escapeGlob(tenant), uuidGlob)

	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete tenant: %w", err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// key builds the Redis key: "item:{tenant}:{itemID}"
func (c *ItemCache) key(tenant string, itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", itemCacheKeyPrefix, tenant, itemID)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
