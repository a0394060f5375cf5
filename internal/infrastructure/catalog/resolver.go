package catalog

import (
	"context"

	"github.com/commerce-platform/inventory-service/internal/domain"
	"github.com/commerce-platform/inventory-service/pkg/metrics"
	"github.com/commerce-platform/inventory-service/pkg/resilience"
)

// BreakerName is the registry key for the catalog-items circuit breaker
const BreakerName = "catalog-items"

// Resolution outcomes recorded as metrics
const (
	outcomeResolved = "resolved"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// Resolver resolves SKUs against catalog-items through a circuit
// breaker. Implements domain.ItemResolver.
//
// Resolve answers with a degraded placeholder when the catalog cannot be
// reached; ResolveStrict opts out of the fallback and surfaces
// *domain.ItemUnresolvedError instead.
type Resolver struct {
	client  *Client
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver guarded by the registry's catalog breaker
func NewResolver(client *Client, registry *resilience.CircuitBreakerRegistry, m *metrics.Metrics) *Resolver {
	return &Resolver{
		client:  client,
		breaker: registry.Get(BreakerName),
		metrics: m,
	}
}

// Resolve returns the catalog item for a SKU. When the lookup fails,
// times out, or is rejected by an open circuit, it answers with the
// unknown-item placeholder tagged degraded.
func (r *Resolver) Resolve(ctx context.Context, sku string) (domain.ItemResolution, error) {
	result, err := resilience.DoWithFallback(ctx, r.breaker,
		func(callCtx context.Context) (domain.ItemInfo, error) {
			return r.lookup(callCtx, sku)
		},
		func(context.Context, error) (domain.ItemInfo, error) {
			return domain.UnknownItem(sku), nil
		},
	)
	if err != nil {
		r.recordOutcome(outcomeFailed)
		return domain.ItemResolution{}, err
	}

	if result.Degraded {
		r.recordOutcome(outcomeDegraded)
	} else {
		r.recordOutcome(outcomeResolved)
	}
	return domain.ItemResolution{Item: result.Value, Degraded: result.Degraded}, nil
}

// ResolveStrict returns the catalog item for a SKU with no fallback.
// Any failure, including an open circuit, yields *domain.ItemUnresolvedError.
func (r *Resolver) ResolveStrict(ctx context.Context, sku string) (domain.ItemInfo, error) {
	item, err := resilience.Do(ctx, r.breaker, func(callCtx context.Context) (domain.ItemInfo, error) {
		return r.lookup(callCtx, sku)
	})
	if err != nil {
		r.recordOutcome(outcomeFailed)
		return domain.ItemInfo{}, domain.NewItemUnresolvedError(sku, err)
	}
	r.recordOutcome(outcomeResolved)
	return item, nil
}

func (r *Resolver) lookup(ctx context.Context, sku string) (domain.ItemInfo, error) {
	dto, err := r.client.GetItem(ctx, sku)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	return domain.ItemInfo{
		SKU:               dto.SKU,
		Name:              dto.Name,
		LowStockThreshold: dto.LowStockThreshold,
		Active:            dto.Active,
	}, nil
}

func (r *Resolver) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordItemResolution(outcome)
	}
}
