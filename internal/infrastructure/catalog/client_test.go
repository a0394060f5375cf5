package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetItem(t *testing.T) {
	tests := []struct {
		name        string
		setupServer func() *httptest.Server
		sku         string
		wantErr     bool
		errContains string
	}{
		{
			name: "Successfully get item",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodGet, r.Method)
					assert.Equal(t, "/api/v1/catalog/items/WIDGET-001", r.URL.Path)
					assert.Equal(t, "application/json", r.Header.Get("Accept"))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(`{
						"sku": "WIDGET-001",
						"name": "Blue Widget",
						"lowStockThreshold": 10,
						"active": true
					}`))
				}))
			},
			sku:     "WIDGET-001",
			wantErr: false,
		},
		{
			name: "Item not found",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
			},
			sku:         "MISSING-001",
			wantErr:     true,
			errContains: "not found",
		},
		{
			name: "Catalog returns error status",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
			},
			sku:         "WIDGET-001",
			wantErr:     true,
			errContains: "returned status",
		},
		{
			name: "Malformed response body",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(`{"sku": `))
				}))
			},
			sku:         "WIDGET-001",
			wantErr:     true,
			errContains: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.setupServer()
			defer server.Close()

			client := NewClient(server.URL)
			item, err := client.GetItem(context.Background(), tt.sku)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, item)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, item)
				assert.Equal(t, tt.sku, item.SKU)
				assert.Equal(t, "Blue Widget", item.Name)
				assert.Equal(t, int64(10), item.LowStockThreshold)
				assert.True(t, item.Active)
			}
		})
	}
}
