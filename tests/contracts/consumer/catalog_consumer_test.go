package consumer_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	pact "github.com/pact-foundation/pact-go/v2"
	"github.com/pact-foundation/pact-go/v2/consumer"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/inventory-service/internal/infrastructure/catalog"
)

const (
	consumerName = "inventory-service"
	providerName = "catalog-items"
	pactDir      = "../../../contracts/pacts"
)

// requirePactEnabled skips unless contract tests are opted in; running them
// needs the pact FFI library installed.
func requirePactEnabled(t *testing.T) {
	if os.Getenv("PACT_TESTS") == "" {
		t.Skip("Set PACT_TESTS=1 to run consumer contract tests")
	}
}

// ensurePactDir ensures the pact output directory exists.
func ensurePactDir(t *testing.T) {
	absPath, err := filepath.Abs(pactDir)
	require.NoError(t, err)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		err = os.MkdirAll(absPath, 0755)
		require.NoError(t, err)
	}
}

func TestCatalogItemsConsumer(t *testing.T) {
	requirePactEnabled(t)
	ensurePactDir(t)

	t.Run("GetItem", func(t *testing.T) {
		mockProvider, err := pact.NewV4Pact(pact.Config{
			Consumer: consumerName,
			Provider: providerName,
			PactDir:  pactDir,
		})
		require.NoError(t, err)

		sku := "WIDGET-001"

		err = mockProvider.
			AddInteraction().
			Given("item exists in catalog").
			UponReceiving("a request to get a catalog item").
			WithRequest(http.MethodGet, fmt.Sprintf("/api/v1/catalog/items/%s", sku)).
			WithHeader("Accept", matchers.String("application/json")).
			WillRespondWith(http.StatusOK).
			WithHeader("Content-Type", matchers.String("application/json")).
			WithJSONBody(matchers.Map{
				"sku":               matchers.String(sku),
				"name":              matchers.String("Blue Widget"),
				"lowStockThreshold": matchers.Integer(10),
				"active":            matchers.Boolean(true),
			}).
			ExecuteTest(t, func(config consumer.MockServerConfig) error {
				client := catalog.NewClient(fmt.Sprintf("http://%s:%d", config.Host, config.Port))

				item, err := client.GetItem(context.Background(), sku)
				if err != nil {
					return err
				}

				assert.Equal(t, sku, item.SKU)
				assert.Equal(t, "Blue Widget", item.Name)
				assert.True(t, item.Active)
				return nil
			})

		require.NoError(t, err)
	})

	t.Run("GetItemNotFound", func(t *testing.T) {
		mockProvider, err := pact.NewV4Pact(pact.Config{
			Consumer: consumerName,
			Provider: providerName,
			PactDir:  pactDir,
		})
		require.NoError(t, err)

		err = mockProvider.
			AddInteraction().
			Given("item does not exist in catalog").
			UponReceiving("a request for an unknown catalog item").
			WithRequest(http.MethodGet, "/api/v1/catalog/items/MISSING-001").
			WithHeader("Accept", matchers.String("application/json")).
			WillRespondWith(http.StatusNotFound).
			ExecuteTest(t, func(config consumer.MockServerConfig) error {
				client := catalog.NewClient(fmt.Sprintf("http://%s:%d", config.Host, config.Port))

				_, err := client.GetItem(context.Background(), "MISSING-001")
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "not found")
				return nil
			})

		require.NoError(t, err)
	})
}
