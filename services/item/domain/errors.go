package domain

import "errors"

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemAlreadyExists indicates the tenant already has an item with the
	// same client-visible identifier.
	ErrItemAlreadyExists = errors.New("item already exists")

	// ErrAmbiguousResult indicates a lookup by identifier matched more than one
	// record. Identifiers are expected to be unique, so this signals a data
	// integrity problem rather than a client error.
	ErrAmbiguousResult = errors.New("ambiguous result")

	// ErrInvalidItem indicates the item violates domain constraints.
	ErrInvalidItem = errors.New("invalid item")

	// ErrIDMismatch indicates the body id of a replace differs from the path id.
	ErrIDMismatch = errors.New("item id does not match path id")

	// ErrInvalidCriterion indicates a query criterion names an unknown field or operator.
	ErrInvalidCriterion = errors.New("invalid criterion")
)
