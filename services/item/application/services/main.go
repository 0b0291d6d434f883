package services

import (
	"fmt"

	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
	"github.com/ghuser/inventorystorage/services/item/infrastructure/persistence/memory"
	"github.com/ghuser/inventorystorage/services/item/infrastructure/persistence/postgres"
	"github.com/ghuser/inventorystorage/services/item/infrastructure/remap"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Item *ItemService
}

// New wires all item application services with infrastructure from the
// Application container, picking backends from a.Config.
func New(a *app.Application) (*Services, error) {
	repo, err := newRepository(a)
	if err != nil {
		return nil, err
	}
	idRemap, err := newRemap(a)
	if err != nil {
		return nil, err
	}

	var itemCache *cache.ItemCache
	if a.Redis != nil && a.Config.ItemCacheEnabled {
		itemCache = cache.NewItemCache(a.Redis)
	}

	return &Services{
		Item: NewItemService(repo, idRemap, itemCache, a.Logger),
	}, nil
}

func newRepository(a *app.Application) (repositories.ItemRepository, error) {
	switch a.Config.StoreBackend {
	case config.BackendMemory:
		return memory.NewItemRepository(), nil
	case config.BackendPostgres:
		if a.Db == nil {
			return nil, fmt.Errorf("store backend %q: database not connected", a.Config.StoreBackend)
		}
		return postgres.NewItemRepository(a.Db, a.EventBus), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.Config.StoreBackend)
	}
}

func newRemap(a *app.Application) (repositories.IdentifierRemap, error) {
	switch a.Config.RemapBackend {
	case config.BackendMemory:
		return remap.NewMemoryRemap(), nil
	case config.BackendRedis:
		if a.Redis == nil {
			return nil, fmt.Errorf("remap backend %q: redis not connected", a.Config.RemapBackend)
		}
		return remap.NewRedisRemap(a.Redis), nil
	default:
		return nil, fmt.Errorf("unknown remap backend %q", a.Config.RemapBackend)
	}
}
