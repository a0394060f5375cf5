package domain

import (
	"context"
	"time"
)

// StockLedger defines the port for movement and level persistence.
// Implementations must guarantee that Record applies the movement append
// and the signed level delta atomically per SKU, and that a level can
// never be driven below zero.
type StockLedger interface {
	// Record appends a movement and applies its delta to the SKU's level
	// as one atomic unit. Exits that exceed the current level fail with
	// *InsufficientStockError and leave both collections untouched.
	Record(ctx context.Context, movement *StockMovement) (*StockLevel, error)

	// Level returns the current aggregate for a SKU, creating the
	// zero-quantity record on first access
	Level(ctx context.Context, sku string) (*StockLevel, error)

	// History returns the most recent movements for a SKU, newest first
	History(ctx context.Context, sku string, limit int) ([]*StockMovement, error)

	// HistoryByKind returns the most recent movements of a single kind
	// for a SKU, newest first
	HistoryByKind(ctx context.Context, sku string, kind MovementKind, limit int) ([]*StockMovement, error)

	// LowStock returns all levels at or below the threshold, lowest first
	LowStock(ctx context.Context, threshold int64) ([]*StockLevel, error)

	// Summary computes point-in-time statistics from local state only
	Summary(ctx context.Context, threshold int64, since time.Time) (*StockSummary, error)
}
