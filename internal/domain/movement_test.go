package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewStockMovement(t *testing.T) {
	tests := []struct {
		name        string
		sku         string
		kind        MovementKind
		quantity    int64
		reason      string
		actor       string
		expectError bool
		expectField string
	}{
		{
			name:     "valid entry",
			sku:      "WIDGET-001",
			kind:     MovementEntry,
			quantity: 10,
			reason:   "initial receipt",
			actor:    "warehouse-01",
		},
		{
			name:     "valid exit",
			sku:      "WIDGET-001",
			kind:     MovementExit,
			quantity: 4,
			reason:   "order shipment",
			actor:    "warehouse-01",
		},
		{
			name:        "empty sku",
			sku:         "",
			kind:        MovementEntry,
			quantity:    10,
			reason:      "receipt",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "sku",
		},
		{
			name:        "whitespace-only sku",
			sku:         "   ",
			kind:        MovementEntry,
			quantity:    10,
			reason:      "receipt",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "sku",
		},
		{
			name:        "invalid kind",
			sku:         "WIDGET-001",
			kind:        MovementKind("TRANSFER"),
			quantity:    10,
			reason:      "receipt",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "kind",
		},
		{
			name:        "zero quantity",
			sku:         "WIDGET-001",
			kind:        MovementEntry,
			quantity:    0,
			reason:      "receipt",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "quantity",
		},
		{
			name:        "negative quantity",
			sku:         "WIDGET-001",
			kind:        MovementExit,
			quantity:    -5,
			reason:      "shipment",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "quantity",
		},
		{
			name:        "empty reason",
			sku:         "WIDGET-001",
			kind:        MovementEntry,
			quantity:    10,
			reason:      "",
			actor:       "warehouse-01",
			expectError: true,
			expectField: "reason",
		},
		{
			name:        "reason exceeds maximum length",
			sku:         "WIDGET-001",
			kind:        MovementEntry,
			quantity:    10,
			reason:      strings.Repeat("x", MaxReasonLength+1),
			actor:       "warehouse-01",
			expectError: true,
			expectField: "reason",
		},
		{
			name:        "empty actor",
			sku:         "WIDGET-001",
			kind:        MovementEntry,
			quantity:    10,
			reason:      "receipt",
			actor:       "",
			expectError: true,
			expectField: "actor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movement, err := NewStockMovement(tt.sku, tt.kind, tt.quantity, tt.reason, "", tt.actor)

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if ve.Field != tt.expectField {
					t.Errorf("expected field %q, got %q", tt.expectField, ve.Field)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if movement.MovementID.String() == "" {
				t.Errorf("expected generated movement ID")
			}
			if movement.SKU != tt.sku {
				t.Errorf("expected sku %s, got %s", tt.sku, movement.SKU)
			}
			if movement.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, movement.Kind)
			}
			if movement.Quantity != tt.quantity {
				t.Errorf("expected quantity %d, got %d", tt.quantity, movement.Quantity)
			}
			if movement.CreatedAt.IsZero() {
				t.Errorf("expected createdAt to be set")
			}
		})
	}
}

func TestNewStockMovement_TrimsFields(t *testing.T) {
	movement, err := NewStockMovement("  WIDGET-001  ", MovementEntry, 10, "  receipt  ", "  PO-991  ", "  clerk  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movement.SKU != "WIDGET-001" {
		t.Errorf("expected trimmed sku, got %q", movement.SKU)
	}
	if movement.Reason != "receipt" {
		t.Errorf("expected trimmed reason, got %q", movement.Reason)
	}
	if movement.Reference != "PO-991" {
		t.Errorf("expected trimmed reference, got %q", movement.Reference)
	}
	if movement.Actor != "clerk" {
		t.Errorf("expected trimmed actor, got %q", movement.Actor)
	}
}

func TestMovementKind(t *testing.T) {
	tests := []struct {
		name  string
		kind  MovementKind
		valid bool
		sign  int64
	}{
		{name: "entry", kind: MovementEntry, valid: true, sign: 1},
		{name: "exit", kind: MovementExit, valid: true, sign: -1},
		{name: "unknown", kind: MovementKind("TRANSFER"), valid: false, sign: -1},
		{name: "empty", kind: MovementKind(""), valid: false, sign: -1},
		{name: "lowercase entry is not valid", kind: MovementKind("entry"), valid: false, sign: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if tt.valid {
				if got := tt.kind.Sign(); got != tt.sign {
					t.Errorf("Sign() = %d, want %d", got, tt.sign)
				}
			}
		})
	}
}

func TestStockMovement_Delta(t *testing.T) {
	entry, err := NewEntryMovement("WIDGET-001", 10, "receipt", "", "clerk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Delta() != 10 {
		t.Errorf("expected delta 10, got %d", entry.Delta())
	}
	if !entry.IsEntry() || entry.IsExit() {
		t.Errorf("expected entry movement")
	}

	exit, err := NewExitMovement("WIDGET-001", 4, "shipment", "", "clerk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exit.Delta() != -4 {
		t.Errorf("expected delta -4, got %d", exit.Delta())
	}
	if !exit.IsExit() || exit.IsEntry() {
		t.Errorf("expected exit movement")
	}
}

func TestMovementID_Unique(t *testing.T) {
	a := NewMovementID()
	b := NewMovementID()
	if a.String() == b.String() {
		t.Errorf("expected unique movement IDs, both were %s", a.String())
	}
}

func TestParseMovementID(t *testing.T) {
	if _, err := ParseMovementID(""); err == nil {
		t.Errorf("expected error for empty ID")
	}

	id, err := ParseMovementID("8f14e45f-ea2f-4d7f-49a1-c0c4f7a1d9b2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "8f14e45f-ea2f-4d7f-49a1-c0c4f7a1d9b2" {
		t.Errorf("unexpected ID value: %s", id.String())
	}
}
