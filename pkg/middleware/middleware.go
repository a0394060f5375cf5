package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Config holds middleware configuration
type Config struct {
	Logger         *slog.Logger
	ServiceName    string
	EnableCORS     bool
	TrustedProxies []string
}

// DefaultConfig returns the standard middleware configuration for a service
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		Logger:      logger,
		ServiceName: serviceName,
		EnableCORS:  true,
	}
}

// Setup applies the standard middleware chain to a Gin router. Order
// matters: recovery wraps everything, request identifiers are assigned
// before anything logs them, and the error handler renders whatever the
// handlers push into the Gin error list.
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(RequestLogger(config.Logger))
	router.Use(InputSanitizer())

	if config.EnableCORS {
		router.Use(CORS())
	}

	router.Use(ContentType())
	router.Use(ErrorHandler(config.Logger))
}

// CORS allows cross-origin calls and exposes the request identifier
// headers so browser clients can correlate failures.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Request-ID, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Correlation-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// HealthCheck reports liveness; it must answer even when dependencies are down
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}

// ReadinessCheck reports readiness based on the supplied dependency check
func ReadinessCheck(serviceName string, checkFn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, body := http.StatusOK, gin.H{"status": "ready", "service": serviceName}
		if err := checkFn(); err != nil {
			status = http.StatusServiceUnavailable
			body = gin.H{"status": "not ready", "service": serviceName, "error": err.Error()}
		}
		c.JSON(status, body)
	}
}

// routeError renders routing failures in the standard error shape. These
// never reach ErrorHandler, so the response is built here.
func routeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}

// NoRoute handles requests for unknown paths
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		routeError(c, http.StatusNotFound, "ROUTE_NOT_FOUND", "The requested resource was not found")
	}
}

// NoMethod handles known paths hit with an unsupported method
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		routeError(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource")
	}
}
