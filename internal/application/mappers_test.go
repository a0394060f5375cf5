package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/inventory-service/internal/domain"
)

func TestToMovementDTO(t *testing.T) {
	movement, err := domain.NewEntryMovement("WIDGET-001", 10, "restock", "PO-9", "tester")
	require.NoError(t, err)

	dto := ToMovementDTO(movement)
	require.NotNil(t, dto)
	assert.Equal(t, movement.MovementID.String(), dto.MovementID)
	assert.Equal(t, "WIDGET-001", dto.SKU)
	assert.Equal(t, "ENTRY", dto.Kind)
	assert.Equal(t, int64(10), dto.Quantity)
	assert.Equal(t, "restock", dto.Reason)
	assert.Equal(t, "PO-9", dto.Reference)
	assert.Equal(t, "tester", dto.Actor)

	assert.Nil(t, ToMovementDTO(nil))
}

func TestToStockLevelDTO(t *testing.T) {
	now := time.Now().UTC()

	dto := ToStockLevelDTO(&domain.StockLevel{SKU: "WIDGET-001", Quantity: 6, UpdatedAt: now})
	require.NotNil(t, dto)
	assert.Equal(t, "WIDGET-001", dto.SKU)
	assert.Equal(t, int64(6), dto.Quantity)
	assert.Equal(t, now, dto.UpdatedAt)

	assert.Nil(t, ToStockLevelDTO(nil))
}

func TestToMovementDTOs_DropsNilEntries(t *testing.T) {
	movement, err := domain.NewExitMovement("WIDGET-001", 2, "order", "", "tester")
	require.NoError(t, err)

	dtos := ToMovementDTOs([]*domain.StockMovement{movement, nil})
	require.Len(t, dtos, 1)
	assert.Equal(t, "EXIT", dtos[0].Kind)
}

func TestToCatalogItemDTO(t *testing.T) {
	dto := ToCatalogItemDTO(domain.ItemInfo{
		SKU:               "WIDGET-001",
		Name:              "Blue Widget",
		LowStockThreshold: 10,
		Active:            true,
	})
	assert.Equal(t, "WIDGET-001", dto.SKU)
	assert.Equal(t, "Blue Widget", dto.Name)
	assert.Equal(t, int64(10), dto.LowStockThreshold)
	assert.True(t, dto.Active)
}

func TestToStockSummaryDTO(t *testing.T) {
	now := time.Now().UTC()

	dto := ToStockSummaryDTO(&domain.StockSummary{
		TrackedItems:    4,
		TotalQuantity:   120,
		LowStockItems:   1,
		RecentMovements: 9,
		Threshold:       5,
		Since:           now.Add(-24 * time.Hour),
		GeneratedAt:     now,
	})
	require.NotNil(t, dto)
	assert.Equal(t, int64(4), dto.TrackedItems)
	assert.Equal(t, int64(120), dto.TotalQuantity)
	assert.Equal(t, int64(1), dto.LowStockItems)
	assert.Equal(t, int64(9), dto.RecentMovements)

	assert.Nil(t, ToStockSummaryDTO(nil))
}
