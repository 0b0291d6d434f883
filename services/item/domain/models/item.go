package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is an inventory record: one physical copy of an instance.
//
// ID is the identifier the record is addressed by. On records returned by a
// repository it is the storage key, which may differ from the identifier the
// client supplied; the item service maps it back before returning.
type Item struct {
	ID             uuid.UUID
	InstanceID     uuid.UUID
	Title          Title
	Barcode        string
	Status         string    // status name, e.g. "Available"
	MaterialTypeID uuid.UUID // uuid.Nil when unset
	Location       string    // location name
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewItem constructs an Item with timestamps set to now. id may be uuid.Nil,
// in which case the store generates one on save.
func NewItem(id, instanceID uuid.UUID, title Title) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:         id,
		InstanceID: instanceID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// ReplaceFields copies the mutable fields of src onto i, leaving ID and
// CreatedAt untouched.
func (i *Item) ReplaceFields(src *Item) {
	i.InstanceID = src.InstanceID
	i.Title = src.Title
	i.Barcode = src.Barcode
	i.Status = src.Status
	i.MaterialTypeID = src.MaterialTypeID
	i.Location = src.Location
	i.UpdatedAt = time.Now().UTC()
}
