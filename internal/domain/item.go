package domain

import "context"

// UnknownItemName is the display name carried by degraded placeholder items
const UnknownItemName = "Unknown Item"

// ItemInfo is the catalog's view of an item, as returned by the
// catalog-items service. The inventory service never owns this data.
type ItemInfo struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	LowStockThreshold int64  `json:"lowStockThreshold"`
	Active            bool   `json:"active"`
}

// ItemResolution is the outcome of resolving an item against the catalog.
// Degraded is true when Item is a locally synthesized placeholder rather
// than an authoritative catalog answer; callers must never treat a
// degraded resolution as confirmation that the item exists.
type ItemResolution struct {
	Item     ItemInfo
	Degraded bool
}

// UnknownItem builds the placeholder used when the catalog cannot answer
func UnknownItem(sku string) ItemInfo {
	return ItemInfo{
		SKU:               sku,
		Name:              UnknownItemName,
		LowStockThreshold: DefaultLowStockThreshold,
		Active:            true,
	}
}

// ItemResolver resolves SKUs against the catalog service
type ItemResolver interface {
	// Resolve returns the catalog item for a SKU, or a degraded placeholder
	// when the catalog is unavailable and a fallback applies
	Resolve(ctx context.Context, sku string) (ItemResolution, error)

	// ResolveStrict returns the catalog item for a SKU with no fallback;
	// any failure surfaces *ItemUnresolvedError
	ResolveStrict(ctx context.Context, sku string) (ItemInfo, error)
}
