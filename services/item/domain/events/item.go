package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics published by the item repository through the outbox.
const (
	TopicItemCreated = "item.created"
	TopicItemUpdated = "item.updated"
	TopicItemDeleted = "item.deleted"
	TopicItemsPurged = "items.purged"
)

// ItemCreatedEvent is published after a new Item is persisted.
// Consumers subscribe via EventBus.Subscribe(ctx, events.TopicItemCreated).
//
// ItemID is the identifier the client addresses the item by; StorageID is the
// key the store filed it under. They differ when the store had to substitute.
type ItemCreatedEvent struct {
	EventID        uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version        int       `json:"version"`  // Schema version; increment on breaking changes
	Tenant         string    `json:"tenant"`
	ItemID         uuid.UUID `json:"item_id"`
	StorageID      uuid.UUID `json:"storage_id"`
	InstanceID     uuid.UUID `json:"instance_id"`
	Title          string    `json:"title"`
	Barcode        string    `json:"barcode,omitempty"`
	Status         string    `json:"status,omitempty"`
	MaterialTypeID uuid.UUID `json:"material_type_id"`
	Location       string    `json:"location,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ItemUpdatedEvent is published after the fields of an Item are replaced.
// It carries no field values; consumers reread the store.
type ItemUpdatedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	Tenant     string    `json:"tenant"`
	ItemID     uuid.UUID `json:"item_id"`
	StorageID  uuid.UUID `json:"storage_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ItemDeletedEvent is published after a single Item is removed.
type ItemDeletedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	Tenant     string    `json:"tenant"`
	ItemID     uuid.UUID `json:"item_id"`
	StorageID  uuid.UUID `json:"storage_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ItemsPurgedEvent is published after every Item of a tenant is removed.
type ItemsPurgedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	Tenant     string    `json:"tenant"`
	Removed    int64     `json:"removed"`
	OccurredAt time.Time `json:"occurred_at"`
}
