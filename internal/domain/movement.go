package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// MaxReasonLength bounds the free-text reason on a movement
const MaxReasonLength = 255

// MovementID represents a unique identifier for a stock movement
type MovementID struct {
	value string
}

// NewMovementID creates a new unique movement ID
func NewMovementID() MovementID {
	return MovementID{value: uuid.New().String()}
}

// ParseMovementID parses a string into a MovementID
func ParseMovementID(s string) (MovementID, error) {
	if s == "" {
		return MovementID{}, errors.New("movement ID cannot be empty")
	}
	return MovementID{value: s}, nil
}

// String returns the string representation
func (id MovementID) String() string {
	return id.value
}

// MarshalBSONValue implements bson.ValueMarshaler
func (id MovementID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(id.value)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (id *MovementID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return bson.UnmarshalValue(t, data, &id.value)
}

// MovementKind classifies a stock movement as inbound or outbound
type MovementKind string

const (
	// MovementEntry - inbound stock: receipts, returns, adjustments up
	MovementEntry MovementKind = "ENTRY"

	// MovementExit - outbound stock: shipments, consumption, adjustments down
	MovementExit MovementKind = "EXIT"
)

// IsValid checks if the movement kind is valid
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementEntry, MovementExit:
		return true
	default:
		return false
	}
}

// String returns the string representation of the movement kind
func (k MovementKind) String() string {
	return string(k)
}

// Sign returns +1 for entries and -1 for exits
func (k MovementKind) Sign() int64 {
	if k == MovementEntry {
		return 1
	}
	return -1
}

// StockMovement is a single immutable entry in the movement log.
// Movements are append-only: they are never updated or deleted, and the
// current stock level for a SKU is always derivable as the sum of its
// signed movement quantities.
type StockMovement struct {
	MovementID MovementID   `bson:"movementId" json:"movementId"`
	SKU        string       `bson:"sku" json:"sku"`
	Kind       MovementKind `bson:"kind" json:"kind"`
	Quantity   int64        `bson:"quantity" json:"quantity"`
	Reason     string       `bson:"reason" json:"reason"`
	Reference  string       `bson:"reference,omitempty" json:"reference,omitempty"`
	Actor      string       `bson:"actor" json:"actor"`
	CreatedAt  time.Time    `bson:"createdAt" json:"createdAt"`
}

// NewStockMovement creates a validated stock movement
func NewStockMovement(sku string, kind MovementKind, quantity int64, reason, reference, actor string) (*StockMovement, error) {
	sku = strings.TrimSpace(sku)
	reason = strings.TrimSpace(reason)
	actor = strings.TrimSpace(actor)

	if sku == "" {
		return nil, NewValidationError("sku", "sku is required")
	}
	if !kind.IsValid() {
		return nil, NewValidationError("kind", "kind must be ENTRY or EXIT")
	}
	if quantity <= 0 {
		return nil, NewValidationError("quantity", "quantity must be positive")
	}
	if reason == "" {
		return nil, NewValidationError("reason", "reason is required")
	}
	if len(reason) > MaxReasonLength {
		return nil, NewValidationError("reason", "reason exceeds maximum length")
	}
	if actor == "" {
		return nil, NewValidationError("actor", "actor is required")
	}

	return &StockMovement{
		MovementID: NewMovementID(),
		SKU:        sku,
		Kind:       kind,
		Quantity:   quantity,
		Reason:     reason,
		Reference:  strings.TrimSpace(reference),
		Actor:      actor,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// NewEntryMovement creates a validated inbound movement
func NewEntryMovement(sku string, quantity int64, reason, reference, actor string) (*StockMovement, error) {
	return NewStockMovement(sku, MovementEntry, quantity, reason, reference, actor)
}

// NewExitMovement creates a validated outbound movement
func NewExitMovement(sku string, quantity int64, reason, reference, actor string) (*StockMovement, error) {
	return NewStockMovement(sku, MovementExit, quantity, reason, reference, actor)
}

// IsEntry returns true if this movement adds stock
func (m *StockMovement) IsEntry() bool {
	return m.Kind == MovementEntry
}

// IsExit returns true if this movement removes stock
func (m *StockMovement) IsExit() bool {
	return m.Kind == MovementExit
}

// Delta returns the signed quantity this movement applies to the stock level
func (m *StockMovement) Delta() int64 {
	return m.Kind.Sign() * m.Quantity
}
