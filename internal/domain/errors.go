package domain

import "fmt"

// ValidationError signals malformed movement input. The ledger rejects
// the movement before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InsufficientStockError signals an exit larger than the current stock
// level. The movement is not appended and the level is unchanged.
type InsufficientStockError struct {
	SKU       string
	Available int64
	Requested int64
}

// NewInsufficientStockError creates an insufficient stock error
func NewInsufficientStockError(sku string, available, requested int64) *InsufficientStockError {
	return &InsufficientStockError{SKU: sku, Available: available, Requested: requested}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.SKU, e.Available, e.Requested)
}

// ItemUnresolvedError signals that a SKU could not be resolved against
// the catalog and no fallback applied.
type ItemUnresolvedError struct {
	SKU string
	Err error
}

// NewItemUnresolvedError creates an item unresolved error wrapping its cause
func NewItemUnresolvedError(sku string, err error) *ItemUnresolvedError {
	return &ItemUnresolvedError{SKU: sku, Err: err}
}

func (e *ItemUnresolvedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("item %s could not be resolved: %v", e.SKU, e.Err)
	}
	return fmt.Sprintf("item %s could not be resolved", e.SKU)
}

func (e *ItemUnresolvedError) Unwrap() error {
	return e.Err
}
