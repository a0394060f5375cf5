package domain

import "time"

// DomainEvent is the interface for all domain events. Events are
// consumed in-process (logging and metrics); nothing is published to a
// message bus.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// MovementRecordedEvent is raised after a movement is durably appended
type MovementRecordedEvent struct {
	MovementID  string    `json:"movementId"`
	SKU         string    `json:"sku"`
	Kind        string    `json:"kind"`
	Quantity    int64     `json:"quantity"`
	NewQuantity int64     `json:"newQuantity"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	RecordedAt  time.Time `json:"recordedAt"`
}

func (e *MovementRecordedEvent) EventType() string     { return "commerce.inventory.movement-recorded" }
func (e *MovementRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// LowStockDetectedEvent is raised when a movement leaves a SKU at or
// below its low-stock threshold
type LowStockDetectedEvent struct {
	SKU        string    `json:"sku"`
	Quantity   int64     `json:"quantity"`
	Threshold  int64     `json:"threshold"`
	DetectedAt time.Time `json:"detectedAt"`
}

func (e *LowStockDetectedEvent) EventType() string     { return "commerce.inventory.low-stock-detected" }
func (e *LowStockDetectedEvent) OccurredAt() time.Time { return e.DetectedAt }
