package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	pkgcache "github.com/ghuser/inventorystorage/pkg/cache"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/telemetry"
	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/inventorystorage/services/item/domain/services"
)

const (
	cacheWarmTimeout = 2 * time.Second
	undoSaveTimeout  = 5 * time.Second
)

// ItemInput carries the client-supplied fields of an item for create and replace.
// ID is uuid.Nil when the client did not supply one.
type ItemInput struct {
	ID             uuid.UUID
	InstanceID     uuid.UUID
	Title          string
	Barcode        string
	Status         string
	MaterialTypeID uuid.UUID
	Location       string
}

// ItemService orchestrates the item operations for a tenant.
//
// The repository may file a record under a different key than the client
// asked for; every create records the pair in the remap table and every read
// maps keys back, so clients only ever see the identifiers they supplied.
// Event publishing is handled by the repository layer (outbox pattern).
// Reads by id are served from Redis cache when available.
type ItemService struct {
	repo          repositories.ItemRepository
	remap         repositories.IdentifierRemap
	cache         *pkgcache.ItemCache
	cacheSync     *CacheSync
	log           logger.Logger
	tracer        trace.Tracer
	substitutions metric.Int64Counter
}

// NewItemService returns an ItemService. itemCache may be nil.
func NewItemService(
	repo repositories.ItemRepository,
	remap repositories.IdentifierRemap,
	itemCache *pkgcache.ItemCache,
	log logger.Logger,
) *ItemService {
	substitutions, err := telemetry.Meter().Int64Counter("items.remap.substitutions",
		metric.WithDescription("Creates filed under a different key than the client requested"),
	)
	if err != nil {
		log.Warn("remap counter unavailable", "error", err)
		substitutions = noop.Int64Counter{}
	}
	var cacheSync *CacheSync
	if itemCache != nil {
		cacheSync = NewCacheSync(repo, itemCache, log)
	}
	return &ItemService{
		repo:          repo,
		remap:         remap,
		cache:         itemCache,
		cacheSync:     cacheSync,
		log:           log,
		tracer:        telemetry.Tracer(),
		substitutions: substitutions,
	}
}

// Create validates and persists an Item and returns it under the identifier
// the client supplied, or the generated one when none was supplied.
// The repository publishes ItemCreatedEvent.
func (s *ItemService) Create(ctx context.Context, tenant string, in ItemInput) (_ *models.Item, err error) {
	ctx, span := s.startSpan(ctx, "ItemService.Create", tenant)
	defer func() { endSpan(span, err) }()

	item, err := buildItem(in)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, tenant, item)
}

func (s *ItemService) create(ctx context.Context, tenant string, item *models.Item) (*models.Item, error) {
	assigned, err := s.repo.Save(ctx, tenant, item)
	if err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	original := item.ID
	if original == uuid.Nil {
		original = assigned
	}
	if err := s.remap.Record(ctx, tenant, assigned, original); err != nil {
		return nil, s.undoSave(ctx, tenant, assigned, fmt.Errorf("record remap: %w", err))
	}
	if assigned != original {
		s.substitutions.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant", tenant)))
		s.log.InfoContext(ctx, "store assigned substitute key",
			"tenant", tenant,
			"item_id", original,
			"storage_id", assigned,
		)
	}

	created := item.Clone()
	created.ID = original
	return created, nil
}

// undoSave removes a record whose remap entry could not be written, so the
// failed create leaves nothing behind and a retry can succeed. It returns
// cause, joined with the delete error when the record could not be removed.
func (s *ItemService) undoSave(ctx context.Context, tenant string, assigned uuid.UUID, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), undoSaveTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, tenant, assigned); err != nil {
		s.log.ErrorContext(ctx, "orphaned item after failed create",
			"error", err,
			"tenant", tenant,
			"storage_id", assigned,
		)
		return errors.Join(cause, fmt.Errorf("undo save: %w", err))
	}
	return cause
}

// GetByID retrieves an Item using a read-through cache pattern:
//  1. Check Redis cache first.
//  2. On cache miss (or cache error), query the repository.
//  3. Asynchronously warm the cache with the result, dropping it again if
//     the record changed in the meantime.
//
// Returns ErrItemNotFound when nothing matches and ErrAmbiguousResult when
// more than one record does.
func (s *ItemService) GetByID(ctx context.Context, tenant string, id uuid.UUID) (_ *models.Item, err error) {
	ctx, span := s.startSpan(ctx, "ItemService.GetByID", tenant)
	defer func() { endSpan(span, err) }()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenant, id)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return fromCached(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "item cache read failed", "error", err, "tenant", tenant)
		}
	}

	stored, err := s.findOne(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	item, err := s.resolve(ctx, tenant, stored)
	if err != nil {
		return nil, err
	}

	if s.cacheSync != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWarmTimeout)
			defer cancel()
			if err := s.cacheSync.Warm(ctx, tenant, id, stored); err != nil {
				s.log.WarnContext(ctx, "item cache warm failed", "error", err, "tenant", tenant)
			}
		}()
	}

	return item, nil
}

// List returns every item of the tenant, each under its client-visible identifier.
func (s *ItemService) List(ctx context.Context, tenant string) (_ []*models.Item, err error) {
	ctx, span := s.startSpan(ctx, "ItemService.List", tenant)
	defer func() { endSpan(span, err) }()

	stored, err := s.repo.Find(ctx, tenant, repositories.All())
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]*models.Item, len(stored))
	for i, rec := range stored {
		if items[i], err = s.resolve(ctx, tenant, rec); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("items.count", len(items)))
	return items, nil
}

// Replace stores in at id. When no item exists at id one is created there,
// otherwise the existing record's fields are replaced. Reports whether the
// item was created. A body id that differs from id is ErrIDMismatch.
func (s *ItemService) Replace(ctx context.Context, tenant string, id uuid.UUID, in ItemInput) (created bool, err error) {
	ctx, span := s.startSpan(ctx, "ItemService.Replace", tenant)
	defer func() { endSpan(span, err) }()

	if in.ID != uuid.Nil && in.ID != id {
		return false, fmt.Errorf("%w: body %s, path %s", itemdomain.ErrIDMismatch, in.ID, id)
	}
	in.ID = id

	item, err := buildItem(in)
	if err != nil {
		return false, err
	}
	defer s.evict(ctx, tenant, id)

	// A concurrent create can win between the lookup and the save; the second
	// pass then updates the record it created.
	for attempt := 0; attempt < 2; attempt++ {
		matches, err := s.repo.Find(ctx, tenant, repositories.ByID(id))
		if err != nil {
			return false, fmt.Errorf("find item: %w", err)
		}

		switch len(matches) {
		case 0:
			_, err := s.create(ctx, tenant, item)
			if errors.Is(err, itemdomain.ErrItemAlreadyExists) {
				continue
			}
			return err == nil, err
		case 1:
			update := item.Clone()
			update.ID = matches[0].ID
			update.CreatedAt = matches[0].CreatedAt
			if err := s.repo.Update(ctx, tenant, update); err != nil {
				return false, fmt.Errorf("update item: %w", err)
			}
			return false, nil
		default:
			return false, ambiguous(id, len(matches))
		}
	}
	return false, fmt.Errorf("replace item: %w", itemdomain.ErrItemAlreadyExists)
}

// Delete removes the item the client addresses as id.
// Returns ErrItemNotFound if no matching item exists.
func (s *ItemService) Delete(ctx context.Context, tenant string, id uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "ItemService.Delete", tenant)
	defer func() { endSpan(span, err) }()

	stored, err := s.findOne(ctx, tenant, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenant, stored.ID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := s.remap.Forget(ctx, tenant, stored.ID); err != nil {
		return fmt.Errorf("forget remap: %w", err)
	}
	s.evict(ctx, tenant, id)
	return nil
}

// DeleteAll removes every item of the tenant along with its remap entries
// and cached reads.
func (s *ItemService) DeleteAll(ctx context.Context, tenant string) (err error) {
	ctx, span := s.startSpan(ctx, "ItemService.DeleteAll", tenant)
	defer func() { endSpan(span, err) }()

	if err := s.repo.DeleteAll(ctx, tenant); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if err := s.remap.Purge(ctx, tenant); err != nil {
		return fmt.Errorf("purge remap: %w", err)
	}
	if s.cache != nil {
		if _, err := s.cache.DeleteTenant(ctx, tenant); err != nil {
			s.log.WarnContext(ctx, "item cache purge failed", "error", err, "tenant", tenant)
		}
	}
	return nil
}

// findOne returns the single raw record the client addresses as id.
func (s *ItemService) findOne(ctx context.Context, tenant string, id uuid.UUID) (*models.Item, error) {
	matches, err := s.repo.Find(ctx, tenant, repositories.ByID(id))
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("item %s: %w", id, itemdomain.ErrItemNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, ambiguous(id, len(matches))
	}
}

// resolve returns a copy of a raw record with its storage key mapped back to
// the client-visible identifier. Only the id is touched.
func (s *ItemService) resolve(ctx context.Context, tenant string, stored *models.Item) (*models.Item, error) {
	id, err := s.remap.Resolve(ctx, tenant, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve id: %w", err)
	}
	item := stored.Clone()
	item.ID = id
	return item, nil
}

func (s *ItemService) evict(ctx context.Context, tenant string, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tenant, id); err != nil {
		s.log.WarnContext(ctx, "item cache evict failed", "error", err, "tenant", tenant, "item_id", id)
	}
}

func (s *ItemService) startSpan(ctx context.Context, name, tenant string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("tenant", tenant)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func ambiguous(id uuid.UUID, n int) error {
	return fmt.Errorf("%w: %d records match id %s", itemdomain.ErrAmbiguousResult, n, id)
}

// buildItem turns client input into a validated Item.
func buildItem(in ItemInput) (*models.Item, error) {
	title, err := models.NewTitle(in.Title)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", itemdomain.ErrInvalidItem, err)
	}

	item := models.NewItem(in.ID, in.InstanceID, title)
	item.Barcode = in.Barcode
	item.Status = in.Status
	item.MaterialTypeID = in.MaterialTypeID
	item.Location = in.Location

	if err := domainsvcs.ValidateItem(item); err != nil {
		return nil, fmt.Errorf("%w: %w", itemdomain.ErrInvalidItem, err)
	}
	return item, nil
}

func toCached(tenant string, item *models.Item) *pkgcache.CachedItem {
	return &pkgcache.CachedItem{
		ID:             item.ID,
		Tenant:         tenant,
		InstanceID:     item.InstanceID,
		Title:          item.Title.String(),
		Barcode:        item.Barcode,
		Status:         item.Status,
		MaterialTypeID: item.MaterialTypeID,
		Location:       item.Location,
		UpdatedAt:      item.UpdatedAt,
	}
}

func fromCached(c *pkgcache.CachedItem) *models.Item {
	return &models.Item{
		ID:             c.ID,
		InstanceID:     c.InstanceID,
		Title:          models.Title(c.Title),
		Barcode:        c.Barcode,
		Status:         c.Status,
		MaterialTypeID: c.MaterialTypeID,
		Location:       c.Location,
		UpdatedAt:      c.UpdatedAt,
	}
}
