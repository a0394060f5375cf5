package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commerce-platform/inventory-service/pkg/errors"
	"github.com/commerce-platform/inventory-service/pkg/logging"
)

// Keys under which request identifiers are stored in the Gin context
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
	ContextKeyTraceID       = "traceId"
	ContextKeySpanID        = "spanId"
)

// Headers carrying request identifiers between services
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// propagateID honors an identifier supplied by the caller or mints one,
// then stores it in the Gin context, the response header and the request
// context the logger reads.
func propagateID(c *gin.Context, header, key string, store func(context.Context, string) context.Context) {
	id := c.GetHeader(header)
	if id == "" {
		id = uuid.New().String()
	}

	c.Set(key, id)
	c.Header(header, id)
	c.Request = c.Request.WithContext(store(c.Request.Context(), id))
}

// RequestID assigns every request a unique identifier and echoes it on
// the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagateID(c, HeaderRequestID, ContextKeyRequestID, logging.ContextWithRequestID)
		c.Next()
	}
}

// CorrelationID propagates the caller's correlation identifier across
// service hops. Trace and span identifiers are owned by the tracing
// middleware and are never synthesized here.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagateID(c, HeaderCorrelationID, ContextKeyCorrelationID, logging.ContextWithCorrelationID)
		c.Next()
	}
}

// RequestLogger logs one line per request with latency, status and the
// request identifiers. Without explicit skip paths the probe and scrape
// endpoints are excluded.
func RequestLogger(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	if len(skipPaths) == 0 {
		skipPaths = []string{"/health", "/ready", "/metrics"}
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latencyMs", latency.Milliseconds(),
			"clientIP", c.ClientIP(),
			"requestId", GetRequestID(c),
			"correlationId", GetCorrelationID(c),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if traceID, exists := c.Get(ContextKeyTraceID); exists {
			attrs = append(attrs, "traceId", traceID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Info("HTTP request", attrs...)
		}
	}
}

// Recovery converts panics into 500 responses instead of crashing the process
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", GetRequestID(c),
					"correlationId", GetCorrelationID(c),
				)

				AbortWithAppError(c, errors.ErrInternal("an unexpected error occurred"))
			}
		}()

		c.Next()
	}
}

func contextString(c *gin.Context, key string) string {
	if val, exists := c.Get(key); exists {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID extracts the request identifier from the Gin context
func GetRequestID(c *gin.Context) string {
	return contextString(c, ContextKeyRequestID)
}

// GetCorrelationID extracts the correlation identifier from the Gin context
func GetCorrelationID(c *gin.Context) string {
	return contextString(c, ContextKeyCorrelationID)
}
