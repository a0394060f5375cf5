package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/commerce-platform/inventory-service/internal/domain"
	"github.com/commerce-platform/inventory-service/pkg/logging"
	"github.com/commerce-platform/inventory-service/pkg/metrics"
	"github.com/commerce-platform/inventory-service/pkg/resilience"
	"github.com/commerce-platform/inventory-service/pkg/tracing"
)

// DefaultHistoryLimit bounds history queries when the caller does not set one
const DefaultHistoryLimit = 50

// summaryWindow is the trailing period covered by the movement count in Summary
const summaryWindow = 24 * time.Hour

// InventoryService handles inventory-related use cases
type InventoryService struct {
	ledger   domain.StockLedger
	resolver domain.ItemResolver
	registry *resilience.CircuitBreakerRegistry
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	ledger domain.StockLedger,
	resolver domain.ItemResolver,
	registry *resilience.CircuitBreakerRegistry,
	m *metrics.Metrics,
	logger *logging.Logger,
) *InventoryService {
	return &InventoryService{
		ledger:   ledger,
		resolver: resolver,
		registry: registry,
		metrics:  m,
		tracer:   otel.Tracer("inventory-service"),
		logger:   logger,
	}
}

// AddEntry resolves the item against the catalog and records an inbound
// movement. A degraded resolution never fails the movement; the result
// carries the degraded flag instead.
func (s *InventoryService) AddEntry(ctx context.Context, cmd AddEntryCommand) (*MovementResultDTO, error) {
	movement, err := domain.NewEntryMovement(cmd.SKU, cmd.Quantity, cmd.Reason, cmd.Reference, cmd.Actor)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, "inventory.add_entry", movement)
}

// RemoveExit resolves the item against the catalog and records an
// outbound movement. Exits that exceed the current level fail with
// *InsufficientStockError and leave the ledger untouched.
func (s *InventoryService) RemoveExit(ctx context.Context, cmd RemoveExitCommand) (*MovementResultDTO, error) {
	movement, err := domain.NewExitMovement(cmd.SKU, cmd.Quantity, cmd.Reason, cmd.Reference, cmd.Actor)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, "inventory.remove_exit", movement)
}

// record runs the shared movement flow: resolve the item through the
// breaker-guarded resolver, append the movement, then raise the
// follow-up events.
func (s *InventoryService) record(ctx context.Context, spanName string, movement *domain.StockMovement) (*MovementResultDTO, error) {
	return tracing.TracedOperation(ctx, s.tracer, spanName, func(ctx context.Context) (*MovementResultDTO, error) {
		resolution, err := s.resolver.Resolve(ctx, movement.SKU)
		if err != nil {
			s.logger.Error("Failed to resolve item", "sku", movement.SKU, "error", err)
			return nil, fmt.Errorf("failed to resolve item: %w", err)
		}

		level, err := s.ledger.Record(ctx, movement)
		if err != nil {
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				s.metrics.RecordExitRejected()
				s.logger.Warn("Rejected stock exit",
					"sku", movement.SKU,
					"available", insufficient.Available,
					"requested", insufficient.Requested,
				)
				return nil, err
			}
			s.logger.Error("Failed to record movement", "sku", movement.SKU, "kind", movement.Kind.String(), "error", err)
			return nil, fmt.Errorf("failed to record movement: %w", err)
		}

		s.metrics.RecordMovement(movement.Kind.String())
		s.publishMovementRecorded(ctx, movement, level)
		s.checkLowStock(ctx, level, resolution.Item)

		s.logger.Info("Recorded stock movement",
			"sku", movement.SKU,
			"kind", movement.Kind.String(),
			"quantity", movement.Quantity,
			"newQuantity", level.Quantity,
			"degraded", resolution.Degraded,
		)

		return &MovementResultDTO{
			Movement: *ToMovementDTO(movement),
			Level:    *ToStockLevelDTO(level),
			Item:     ToCatalogItemDTO(resolution.Item),
			Degraded: resolution.Degraded,
		}, nil
	})
}

// Level returns the current stock level for a SKU, creating the
// zero-quantity record on first access
func (s *InventoryService) Level(ctx context.Context, query LevelQuery) (*StockLevelDTO, error) {
	level, err := s.ledger.Level(ctx, query.SKU)
	if err != nil {
		s.logger.Error("Failed to get stock level", "sku", query.SKU, "error", err)
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}

	return ToStockLevelDTO(level), nil
}

// History returns the most recent movements for a SKU, newest first,
// optionally restricted to a single movement kind
func (s *InventoryService) History(ctx context.Context, query HistoryQuery) ([]MovementDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var movements []*domain.StockMovement
	var err error
	if query.Kind != "" {
		movements, err = s.ledger.HistoryByKind(ctx, query.SKU, domain.MovementKind(query.Kind), limit)
	} else {
		movements, err = s.ledger.History(ctx, query.SKU, limit)
	}
	if err != nil {
		s.logger.Error("Failed to get movement history", "sku", query.SKU, "error", err)
		return nil, fmt.Errorf("failed to get movement history: %w", err)
	}

	return ToMovementDTOs(movements), nil
}

// LowStock returns all levels at or below the threshold, lowest first
func (s *InventoryService) LowStock(ctx context.Context, query LowStockQuery) ([]StockLevelDTO, error) {
	levels, err := s.ledger.LowStock(ctx, query.Threshold)
	if err != nil {
		s.logger.Error("Failed to get low stock levels", "threshold", query.Threshold, "error", err)
		return nil, fmt.Errorf("failed to get low stock levels: %w", err)
	}

	return ToStockLevelDTOs(levels), nil
}

// LowStockAlerts resolves catalog data for every level at or below the
// threshold. A per-item resolution failure never aborts the batch: the
// item is reported unresolved and counted.
func (s *InventoryService) LowStockAlerts(ctx context.Context, query LowStockAlertsQuery) (*LowStockReportDTO, error) {
	return tracing.TracedOperation(ctx, s.tracer, "inventory.low_stock_alerts", func(ctx context.Context) (*LowStockReportDTO, error) {
		levels, err := s.ledger.LowStock(ctx, query.Threshold)
		if err != nil {
			s.logger.Error("Failed to get low stock levels", "threshold", query.Threshold, "error", err)
			return nil, fmt.Errorf("failed to get low stock levels: %w", err)
		}

		alerts := make([]LowStockAlertDTO, 0, len(levels))
		unresolved := 0
		for _, level := range levels {
			item, err := s.resolver.ResolveStrict(ctx, level.SKU)
			if err != nil {
				unresolved++
				s.logger.Warn("Item unresolved for low stock alert", "sku", level.SKU, "error", err)
				alerts = append(alerts, LowStockAlertDTO{
					SKU:        level.SKU,
					Quantity:   level.Quantity,
					Unresolved: true,
				})
				continue
			}

			alerts = append(alerts, LowStockAlertDTO{
				SKU:               level.SKU,
				Quantity:          level.Quantity,
				ItemName:          item.Name,
				LowStockThreshold: item.LowStockThreshold,
				Active:            item.Active,
			})
		}

		return &LowStockReportDTO{
			Alerts:          alerts,
			UnresolvedCount: unresolved,
			Threshold:       query.Threshold,
			GeneratedAt:     time.Now().UTC(),
		}, nil
	})
}

// Summary computes inventory statistics from local state only; it stays
// available when the catalog is down
func (s *InventoryService) Summary(ctx context.Context) (*StockSummaryDTO, error) {
	since := time.Now().UTC().Add(-summaryWindow)

	summary, err := s.ledger.Summary(ctx, domain.DefaultLowStockThreshold, since)
	if err != nil {
		s.logger.Error("Failed to compute stock summary", "error", err)
		return nil, fmt.Errorf("failed to compute stock summary: %w", err)
	}

	return ToStockSummaryDTO(summary), nil
}

// CircuitState returns the state of a named circuit breaker. The second
// return value is false when no breaker with that name exists.
func (s *InventoryService) CircuitState(name string) (resilience.State, bool) {
	return s.registry.State(name)
}

// CircuitStats returns the stats of all registered circuit breakers
func (s *InventoryService) CircuitStats() map[string]resilience.CircuitBreakerStats {
	return s.registry.Status()
}

// publishMovementRecorded logs the movement-recorded domain event
func (s *InventoryService) publishMovementRecorded(ctx context.Context, movement *domain.StockMovement, level *domain.StockLevel) {
	event := &domain.MovementRecordedEvent{
		MovementID:  movement.MovementID.String(),
		SKU:         movement.SKU,
		Kind:        movement.Kind.String(),
		Quantity:    movement.Quantity,
		NewQuantity: level.Quantity,
		Reason:      movement.Reason,
		Actor:       movement.Actor,
		RecordedAt:  movement.CreatedAt,
	}

	s.logger.Event(ctx, event.EventType(), map[string]any{
		"movementId":  event.MovementID,
		"sku":         event.SKU,
		"kind":        event.Kind,
		"quantity":    event.Quantity,
		"newQuantity": event.NewQuantity,
	})
}

// checkLowStock raises the low stock event when the post-movement level
// sits at or below the item's threshold
func (s *InventoryService) checkLowStock(ctx context.Context, level *domain.StockLevel, item domain.ItemInfo) {
	threshold := item.LowStockThreshold
	if threshold <= 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	if !level.AtOrBelow(threshold) {
		return
	}

	event := &domain.LowStockDetectedEvent{
		SKU:        level.SKU,
		Quantity:   level.Quantity,
		Threshold:  threshold,
		DetectedAt: time.Now().UTC(),
	}

	s.metrics.RecordLowStockDetected()
	s.logger.Event(ctx, event.EventType(), map[string]any{
		"sku":       event.SKU,
		"quantity":  event.Quantity,
		"threshold": event.Threshold,
	})
}
