// Package memory implements the item repository in process memory.
//
// Storage keys live in one space shared by every tenant, the same way rows of
// the postgres item table do, so a requested identifier that another tenant
// already occupies is filed under a fresh key.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

var _ repositories.ItemRepository = (*ItemRepository)(nil)

type record struct {
	tenant string
	itemID uuid.UUID // identifier the client addresses the record by
	item   *models.Item
	seq    uint64
}

// ItemRepository implements repositories.ItemRepository in memory.
type ItemRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*record // keyed by storage key
	seq     uint64
}

// NewItemRepository returns an empty in-memory ItemRepository.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{records: make(map[uuid.UUID]*record)}
}

// Save stores item and returns the storage key it was filed under.
func (r *ItemRepository) Save(ctx context.Context, tenant string, item *models.Item) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	requested := item.ID
	if requested == uuid.Nil {
		requested = uuid.New()
	}

	for _, rec := range r.records {
		if rec.tenant == tenant && rec.itemID == requested {
			return uuid.Nil, itemdomain.ErrItemAlreadyExists
		}
	}

	key := requested
	for {
		if _, taken := r.records[key]; !taken {
			break
		}
		key = uuid.New()
	}

	stored := item.Clone()
	stored.ID = key
	r.seq++
	r.records[key] = &record{tenant: tenant, itemID: requested, item: stored, seq: r.seq}
	return key, nil
}

// Find returns raw records of tenant matching c, in insertion order.
func (r *ItemRepository) Find(ctx context.Context, tenant string, c repositories.Criterion) ([]*models.Item, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]*record, 0)
	for _, rec := range r.records {
		if rec.tenant == tenant && matches(rec, c) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *record) int {
		return cmp.Compare(a.seq, b.seq)
	})

	items := make([]*models.Item, len(matched))
	for i, rec := range matched {
		items[i] = rec.item.Clone()
	}
	return items, nil
}

// Update replaces the mutable fields of the record stored under item.ID.
func (r *ItemRepository) Update(ctx context.Context, tenant string, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[item.ID]
	if !ok || rec.tenant != tenant {
		return itemdomain.ErrItemNotFound
	}
	rec.item.ReplaceFields(item)
	return nil
}

// Delete removes the record stored under storageID.
func (r *ItemRepository) Delete(ctx context.Context, tenant string, storageID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[storageID]
	if !ok || rec.tenant != tenant {
		return fmt.Errorf("delete %s: %w", storageID, itemdomain.ErrItemNotFound)
	}
	delete(r.records, storageID)
	return nil
}

// DeleteAll removes every record of tenant.
func (r *ItemRepository) DeleteAll(ctx context.Context, tenant string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, rec := range r.records {
		if rec.tenant == tenant {
			delete(r.records, key)
		}
	}
	return nil
}

// Len returns the number of records held across all tenants.
func (r *ItemRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func matches(rec *record, c repositories.Criterion) bool {
	if c.IsAll() {
		return true
	}

	var field string
	switch c.Field {
	case repositories.FieldID:
		field = rec.itemID.String()
	case repositories.FieldInstanceID:
		field = rec.item.InstanceID.String()
	case repositories.FieldBarcode:
		field = rec.item.Barcode
	case repositories.FieldTitle:
		field = rec.item.Title.String()
	}

	value := c.Value
	if c.Field == repositories.FieldID || c.Field == repositories.FieldInstanceID {
		// Validate has already checked the value parses.
		value = uuid.MustParse(c.Value).String()
	}

	if c.Op == repositories.OpNotEqual {
		return field != value
	}
	return field == value
}
