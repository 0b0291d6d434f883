package repositories

import (
	"context"

	"github.com/google/uuid"
)

// IdentifierRemap remembers, per tenant, which client-supplied identifier a
// store-assigned key stands for. Implementations must be safe for concurrent use.
type IdentifierRemap interface {
	// Record notes that storeID was assigned for a record the client created as
	// originalID. Recording storeID == originalID is allowed and harmless.
	Record(ctx context.Context, tenant string, storeID, originalID uuid.UUID) error

	// Resolve returns the original identifier for id, or id itself when no
	// substitution was recorded.
	Resolve(ctx context.Context, tenant string, id uuid.UUID) (uuid.UUID, error)

	// Forget drops the entry for storeID.
	Forget(ctx context.Context, tenant string, storeID uuid.UUID) error

	// Purge drops every entry of the tenant.
	Purge(ctx context.Context, tenant string) error
}
