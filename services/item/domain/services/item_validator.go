// Package services contains stateless domain services for the item bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have zero external dependencies beyond stdlib and the domain layer.
package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/ghuser/inventorystorage/services/item/domain/models"
)

// ValidateTitle enforces business rules for Title beyond the structural
// constraints enforced by the Title constructor (length 1–255).
//
// Business rules:
//   - Must not be only whitespace characters
//   - No control characters (Unicode category Cc)
func ValidateTitle(title models.Title) error {
	s := title.String()

	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title must not be only whitespace")
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("title must not contain control characters")
		}
	}

	return nil
}

// ValidateBarcode rejects barcodes carrying whitespace or control characters.
// An empty barcode is allowed.
func ValidateBarcode(barcode string) error {
	for _, r := range barcode {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("barcode must not contain whitespace or control characters")
		}
	}
	return nil
}

// ValidateItem performs cross-field validation on a fully-constructed Item
// before it is persisted, by create or by replace. ID may be nil; the store
// assigns one.
func ValidateItem(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}

	if err := ValidateTitle(item.Title); err != nil {
		return fmt.Errorf("invalid title: %w", err)
	}

	if err := ValidateBarcode(item.Barcode); err != nil {
		return fmt.Errorf("invalid barcode: %w", err)
	}

	if item.InstanceID == uuid.Nil {
		return fmt.Errorf("instanceId must be set")
	}

	return nil
}
