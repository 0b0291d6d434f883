package remap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ghuser/inventorystorage/pkg/cache"
)

const keyPrefix = "remap"

// RedisRemap stores one hash per tenant, "remap:{tenant}", mapping store ids
// to original ids. Entries carry no TTL; only Forget and Purge remove them.
type RedisRemap struct {
	client *cache.RedisClient
}

// NewRedisRemap returns a RedisRemap backed by the given client.
func NewRedisRemap(r *cache.RedisClient) *RedisRemap {
	return &RedisRemap{client: r}
}

func (r *RedisRemap) Record(ctx context.Context, tenant string, storeID, originalID uuid.UUID) error {
	if err := r.client.Client().HSet(ctx, key(tenant), storeID.String(), originalID.String()).Err(); err != nil {
		return fmt.Errorf("remap record: %w", err)
	}
	return nil
}

func (r *RedisRemap) Resolve(ctx context.Context, tenant string, id uuid.UUID) (uuid.UUID, error) {
	v, err := r.client.Client().HGet(ctx, key(tenant), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return id, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("remap resolve: %w", err)
	}
	original, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("remap resolve: corrupt entry for %s: %w", id, err)
	}
	return original, nil
}

func (r *RedisRemap) Forget(ctx context.Context, tenant string, storeID uuid.UUID) error {
	if err := r.client.Client().HDel(ctx, key(tenant), storeID.String()).Err(); err != nil {
		return fmt.Errorf("remap forget: %w", err)
	}
	return nil
}

func (r *RedisRemap) Purge(ctx context.Context, tenant string) error {
	if err := r.client.Client().Del(ctx, key(tenant)).Err(); err != nil {
		return fmt.Errorf("remap purge: %w", err)
	}
	return nil
}

func key(tenant string) string {
	return keyPrefix + ":" + tenant
}
