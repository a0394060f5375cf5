package domain

import "time"

// DefaultLowStockThreshold is the threshold used when a caller or the
// catalog item does not provide one.
const DefaultLowStockThreshold = 5

// StockLevel is the derived current-quantity aggregate for a SKU.
// It is created lazily at zero the first time a SKU is referenced,
// mutated only through the ledger's atomic conditional update, and
// never deleted. Quantity can never go below zero.
type StockLevel struct {
	SKU       string    `bson:"sku" json:"sku"`
	Quantity  int64     `bson:"quantity" json:"quantity"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewStockLevel creates a zero-quantity level for a SKU
func NewStockLevel(sku string) *StockLevel {
	return &StockLevel{
		SKU:       sku,
		Quantity:  0,
		UpdatedAt: time.Now().UTC(),
	}
}

// CanSatisfy returns true if the level covers an exit of the given quantity
func (l *StockLevel) CanSatisfy(quantity int64) bool {
	return l.Quantity >= quantity
}

// AtOrBelow returns true if the level sits at or below the threshold
func (l *StockLevel) AtOrBelow(threshold int64) bool {
	return l.Quantity <= threshold
}

// StockSummary holds point-in-time statistics derived from local state only.
// No remote dependency is consulted to build it.
type StockSummary struct {
	TrackedItems    int64     `json:"trackedItems"`
	TotalQuantity   int64     `json:"totalQuantity"`
	LowStockItems   int64     `json:"lowStockItems"`
	RecentMovements int64     `json:"recentMovements"`
	Threshold       int64     `json:"threshold"`
	Since           time.Time `json:"since"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
