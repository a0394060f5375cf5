package application

import "time"

// MovementDTO represents a recorded stock movement in responses
type MovementDTO struct {
	MovementID string    `json:"movementId"`
	SKU        string    `json:"sku"`
	Kind       string    `json:"kind"`
	Quantity   int64     `json:"quantity"`
	Reason     string    `json:"reason"`
	Reference  string    `json:"reference,omitempty"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StockLevelDTO represents the current quantity aggregate for a SKU
type StockLevelDTO struct {
	SKU       string    `json:"sku"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CatalogItemDTO represents the catalog's view of an item
type CatalogItemDTO struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	LowStockThreshold int64  `json:"lowStockThreshold"`
	Active            bool   `json:"active"`
}

// MovementResultDTO is the response for a recorded movement. Degraded is
// true when the item data came from the fallback placeholder rather than
// the catalog.
type MovementResultDTO struct {
	Movement MovementDTO    `json:"movement"`
	Level    StockLevelDTO  `json:"level"`
	Item     CatalogItemDTO `json:"item"`
	Degraded bool           `json:"degraded"`
}

// LowStockAlertDTO represents a single low stock alert. Unresolved is
// true when the item could not be resolved against the catalog; ItemName
// and LowStockThreshold are then absent.
type LowStockAlertDTO struct {
	SKU               string `json:"sku"`
	Quantity          int64  `json:"quantity"`
	ItemName          string `json:"itemName,omitempty"`
	LowStockThreshold int64  `json:"lowStockThreshold,omitempty"`
	Active            bool   `json:"active"`
	Unresolved        bool   `json:"unresolved"`
}

// LowStockReportDTO is the batch result of resolving low stock alerts.
// Per-item resolution failures never abort the batch; they are counted
// in UnresolvedCount.
type LowStockReportDTO struct {
	Alerts          []LowStockAlertDTO `json:"alerts"`
	UnresolvedCount int                `json:"unresolvedCount"`
	Threshold       int64              `json:"threshold"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}

// StockSummaryDTO represents point-in-time inventory statistics
type StockSummaryDTO struct {
	TrackedItems    int64     `json:"trackedItems"`
	TotalQuantity   int64     `json:"totalQuantity"`
	LowStockItems   int64     `json:"lowStockItems"`
	RecentMovements int64     `json:"recentMovements"`
	Threshold       int64     `json:"threshold"`
	Since           time.Time `json:"since"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
