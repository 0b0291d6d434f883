package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
)

// Criterion fields accepted by ItemRepository.Find.
const (
	FieldID         = "id"
	FieldInstanceID = "instanceId"
	FieldBarcode    = "barcode"
	FieldTitle      = "title"
)

// Criterion operators accepted by ItemRepository.Find.
const (
	OpEqual    = "="
	OpNotEqual = "<>"
)

// Criterion is a single field comparison used to filter records.
// The zero value matches every record of the tenant.
type Criterion struct {
	Field string
	Op    string
	Value string
}

// All returns the criterion that matches every record.
func All() Criterion {
	return Criterion{}
}

// ByID returns the criterion that matches the record the client addresses as id.
func ByID(id uuid.UUID) Criterion {
	return Criterion{Field: FieldID, Op: OpEqual, Value: id.String()}
}

// IsAll reports whether c matches every record.
func (c Criterion) IsAll() bool {
	return c == Criterion{}
}

// Validate reports ErrInvalidCriterion when c names a field or operator the
// repositories do not support, or an id comparison against a non-UUID value.
func (c Criterion) Validate() error {
	if c.IsAll() {
		return nil
	}
	switch c.Field {
	case FieldID, FieldInstanceID:
		if _, err := uuid.Parse(c.Value); err != nil {
			return fmt.Errorf("%w: %s must be a UUID", itemdomain.ErrInvalidCriterion, c.Field)
		}
	case FieldBarcode, FieldTitle:
	default:
		return fmt.Errorf("%w: unknown field %q", itemdomain.ErrInvalidCriterion, c.Field)
	}
	switch c.Op {
	case OpEqual, OpNotEqual:
	default:
		return fmt.Errorf("%w: unknown operator %q", itemdomain.ErrInvalidCriterion, c.Op)
	}
	return nil
}

// ItemRepository is the persistence interface for the Item aggregate.
// The domain layer owns this interface; infrastructure implements it.
//
// Every method is scoped to a tenant. Records returned by Find carry their
// storage key in ID, which is not necessarily the identifier the client
// supplied; callers map it back through an IdentifierRemap.
type ItemRepository interface {
	// Save inserts item under the tenant and returns the storage key actually
	// assigned. item.ID is the requested identifier; uuid.Nil asks the store to
	// generate one. Returns ErrItemAlreadyExists when the tenant already has a
	// record with that identifier.
	Save(ctx context.Context, tenant string, item *models.Item) (uuid.UUID, error)

	// Find returns the tenant's records matching c, oldest first.
	// Returns ErrInvalidCriterion for unknown fields or operators.
	Find(ctx context.Context, tenant string, c Criterion) ([]*models.Item, error)

	// Update replaces the mutable fields of the record stored under item.ID.
	Update(ctx context.Context, tenant string, item *models.Item) error

	// Delete removes the record stored under storageID.
	// Returns ErrItemNotFound if nothing was removed.
	Delete(ctx context.Context, tenant string, storageID uuid.UUID) error

	// DeleteAll removes every record of the tenant.
	DeleteAll(ctx context.Context, tenant string) error
}
