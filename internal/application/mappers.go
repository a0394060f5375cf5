package application

import "github.com/commerce-platform/inventory-service/internal/domain"

// ToMovementDTO converts a domain StockMovement to MovementDTO
func ToMovementDTO(movement *domain.StockMovement) *MovementDTO {
	if movement == nil {
		return nil
	}

	return &MovementDTO{
		MovementID: movement.MovementID.String(),
		SKU:        movement.SKU,
		Kind:       movement.Kind.String(),
		Quantity:   movement.Quantity,
		Reason:     movement.Reason,
		Reference:  movement.Reference,
		Actor:      movement.Actor,
		CreatedAt:  movement.CreatedAt,
	}
}

// ToMovementDTOs converts a slice of domain StockMovements to MovementDTOs
func ToMovementDTOs(movements []*domain.StockMovement) []MovementDTO {
	dtos := make([]MovementDTO, 0, len(movements))
	for _, movement := range movements {
		if dto := ToMovementDTO(movement); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToStockLevelDTO converts a domain StockLevel to StockLevelDTO
func ToStockLevelDTO(level *domain.StockLevel) *StockLevelDTO {
	if level == nil {
		return nil
	}

	return &StockLevelDTO{
		SKU:       level.SKU,
		Quantity:  level.Quantity,
		UpdatedAt: level.UpdatedAt,
	}
}

// ToStockLevelDTOs converts a slice of domain StockLevels to StockLevelDTOs
func ToStockLevelDTOs(levels []*domain.StockLevel) []StockLevelDTO {
	dtos := make([]StockLevelDTO, 0, len(levels))
	for _, level := range levels {
		if dto := ToStockLevelDTO(level); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToCatalogItemDTO converts a domain ItemInfo to CatalogItemDTO
func ToCatalogItemDTO(item domain.ItemInfo) CatalogItemDTO {
	return CatalogItemDTO{
		SKU:               item.SKU,
		Name:              item.Name,
		LowStockThreshold: item.LowStockThreshold,
		Active:            item.Active,
	}
}

// ToStockSummaryDTO converts a domain StockSummary to StockSummaryDTO
func ToStockSummaryDTO(summary *domain.StockSummary) *StockSummaryDTO {
	if summary == nil {
		return nil
	}

	return &StockSummaryDTO{
		TrackedItems:    summary.TrackedItems,
		TotalQuantity:   summary.TotalQuantity,
		LowStockItems:   summary.LowStockItems,
		RecentMovements: summary.RecentMovements,
		Threshold:       summary.Threshold,
		Since:           summary.Since,
		GeneratedAt:     summary.GeneratedAt,
	}
}
