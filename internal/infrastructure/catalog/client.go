package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/commerce-platform/inventory-service/pkg/tracing"
)

// ItemDTO represents item data fetched from catalog-items
type ItemDTO struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	LowStockThreshold int64  `json:"lowStockThreshold"`
	Active            bool   `json:"active"`
}

// Client handles communication with catalog-items
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new catalog Client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetItem fetches a single item by SKU from catalog-items. A 404 is an
// error like any other so the caller's circuit breaker counts it.
func (c *Client) GetItem(ctx context.Context, sku string) (*ItemDTO, error) {
	url := fmt.Sprintf("%s/api/v1/catalog/items/%s", c.baseURL, sku)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	tracing.InjectTraceContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("item not found in catalog: %s", sku)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var item ItemDTO
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode item response: %w", err)
	}

	return &item, nil
}
