package application

// AddEntryCommand represents the command to record an inbound stock movement
type AddEntryCommand struct {
	SKU       string
	Quantity  int64
	Reason    string
	Reference string
	Actor     string
}

// RemoveExitCommand represents the command to record an outbound stock movement
type RemoveExitCommand struct {
	SKU       string
	Quantity  int64
	Reason    string
	Reference string
	Actor     string
}

// LevelQuery represents the query for a SKU's current stock level
type LevelQuery struct {
	SKU string
}

// HistoryQuery represents the query for a SKU's recent movements.
// An empty Kind means movements of every kind.
type HistoryQuery struct {
	SKU   string
	Kind  string
	Limit int
}

// LowStockQuery represents the query for levels at or below a threshold
type LowStockQuery struct {
	Threshold int64
}

// LowStockAlertsQuery represents the query for catalog-resolved low stock alerts
type LowStockAlertsQuery struct {
	Threshold int64
}
