package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commerce-platform/inventory-service/pkg/metrics"
)

// MetricsMiddleware records request rate, latency and in-flight count
// per route pattern. The scrape endpoint itself is not measured.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		// Label by route pattern so path parameters don't explode cardinality
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the Prometheus scrape endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
