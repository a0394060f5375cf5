package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/commerce-platform/inventory-service/pkg/errors"
	"github.com/commerce-platform/inventory-service/pkg/logging"
	"github.com/commerce-platform/inventory-service/pkg/metrics"
	"github.com/commerce-platform/inventory-service/pkg/middleware"
	"github.com/commerce-platform/inventory-service/pkg/mongodb"
	"github.com/commerce-platform/inventory-service/pkg/resilience"
	"github.com/commerce-platform/inventory-service/pkg/tracing"

	"github.com/commerce-platform/inventory-service/internal/application"
	"github.com/commerce-platform/inventory-service/internal/domain"
	"github.com/commerce-platform/inventory-service/internal/infrastructure/catalog"
	mongoRepo "github.com/commerce-platform/inventory-service/internal/infrastructure/mongodb"
)

const serviceName = "inventory-service"

func main() {
	config := loadConfig()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = config.LogLevel
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory-service API")
	logger.WithFields(map[string]any{
		"addr":       config.ServerAddr,
		"database":   config.MongoDB.Database,
		"catalogURL": config.CatalogURL,
	}).Info("Configuration loaded")

	ctx := context.Background()

	flushTraces := initTracing(ctx, logger)
	defer flushTraces()

	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// MongoDB with pool instrumentation
	config.MongoDB.PoolMonitor = mongodb.PoolMonitor(m)
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger.WithComponent("mongodb"))
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Circuit breaker transitions feed the logger and the state gauge
	registry := resilience.NewCircuitBreakerRegistry(logger.Logger, func(name string, from, to resilience.State) {
		logger.CircuitBreakerTransition(context.Background(), name, string(from), string(to))
		m.SetCircuitBreakerState(name, stateGaugeValue(to))
		if to == resilience.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	})
	logger.Info("Circuit breaker registry initialized")

	ledger := mongoRepo.NewStockLedgerRepository(instrumentedMongo)

	catalogClient := catalog.NewClient(config.CatalogURL)
	resolver := catalog.NewResolver(catalogClient, registry, m)
	logger.Info("Catalog resolver initialized", "baseURL", config.CatalogURL)

	inventoryService := application.NewInventoryService(ledger, resolver, registry, m, logger)

	router := newRouter(ctx, inventoryService, instrumentedMongo, m, logger)

	serve(&http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, logger)
}

// initTracing installs the OTLP pipeline and returns a flush function.
// Startup continues without tracing when the collector setup fails.
func initTracing(ctx context.Context, logger *logging.Logger) func() {
	config := tracing.DefaultConfig(serviceName)
	config.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	config.Environment = getEnv("ENVIRONMENT", "development")
	config.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	provider, err := tracing.Initialize(ctx, config)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		return func() {}
	}
	if config.Enabled {
		logger.Info("Tracing initialized", "endpoint", config.OTLPEndpoint)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracer")
		}
	}
}

// newRouter wires the middleware chain, operational endpoints and the
// inventory API
func newRouter(ctx context.Context, service *application.InventoryService, mongo *mongodb.InstrumentedClient, m *metrics.Metrics, logger *logging.Logger) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.HandleMethodNotAllowed = true
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/health/circuits", circuitHealthHandler(service))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1/inventory")
	{
		// Static routes first so the :sku wildcard does not swallow them
		api.GET("/low-stock", lowStockHandler(service, logger))
		api.GET("/low-stock/alerts", lowStockAlertsHandler(service, logger))
		api.GET("/summary", summaryHandler(service, logger))

		api.POST("/:sku/entries", addEntryHandler(service, logger))
		api.POST("/:sku/exits", removeExitHandler(service, logger))
		api.GET("/:sku/level", levelHandler(service, logger))
		api.GET("/:sku/movements", movementsHandler(service, logger))
	}

	return router
}

// serve runs the server until SIGINT or SIGTERM, then drains in-flight
// requests before returning
func serve(srv *http.Server, logger *logging.Logger) {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("Server started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
		return
	case sig := <-quit:
		logger.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	LogLevel   logging.LogLevel
	MongoDB    *mongodb.Config
	CatalogURL string
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8007"),
		LogLevel:   logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "inventory"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		CatalogURL: getEnv("CATALOG_URL", "http://localhost:8006"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// stateGaugeValue encodes breaker states for the Prometheus gauge:
// 0 closed, 1 open, 2 half-open.
func stateGaugeValue(state resilience.State) int {
	switch state {
	case resilience.StateOpen:
		return 1
	case resilience.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// respondDomainError maps typed domain errors onto the platform error
// taxonomy before responding.
func respondDomainError(responder *middleware.ErrorResponder, err error) {
	var validationErr *domain.ValidationError
	var stockErr *domain.InsufficientStockError
	var unresolvedErr *domain.ItemUnresolvedError

	switch {
	case errors.As(err, &validationErr):
		responder.RespondWithAppError(apperrors.ErrValidation(validationErr.Error()))
	case errors.As(err, &stockErr):
		responder.RespondWithAppError(apperrors.ErrInsufficientStock(stockErr.SKU, stockErr.Available, stockErr.Requested))
	case errors.As(err, &unresolvedErr):
		responder.RespondWithAppError(apperrors.ErrServiceUnavailable("catalog-items"))
	case errors.Is(err, resilience.ErrCircuitOpen):
		responder.RespondWithAppError(apperrors.ErrServiceUnavailable("catalog-items"))
	case errors.Is(err, resilience.ErrCallTimeout):
		responder.RespondWithAppError(apperrors.ErrTimeout("catalog lookup"))
	default:
		responder.RespondInternalError(err)
	}
}

// bindSKU validates the SKU path parameter. Rejecting malformed SKUs
// before the service runs keeps garbage identifiers from materializing
// as zero-quantity stock levels.
func bindSKU(c *gin.Context, responder *middleware.ErrorResponder) (string, bool) {
	var params struct {
		SKU string `uri:"sku" json:"sku" binding:"required,sku"`
	}
	if err := c.ShouldBindUri(&params); err != nil {
		responder.RespondValidationError("invalid SKU", middleware.ValidationErrorFormatter(err))
		return "", false
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{"inventory.sku": params.SKU})
	return params.SKU, true
}

// movementRequest is the JSON body shared by the entry and exit endpoints
type movementRequest struct {
	Quantity  int64  `json:"quantity" binding:"required"`
	Reason    string `json:"reason" binding:"omitempty,safe_string"`
	Reference string `json:"reference" binding:"omitempty,safe_string"`
	Actor     string `json:"actor" binding:"required,safe_string"`
}

func addEntryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sku, ok := bindSKU(c, responder)
		if !ok {
			return
		}

		var req movementRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.AddEntryCommand{
			SKU:       sku,
			Quantity:  req.Quantity,
			Reason:    req.Reason,
			Reference: req.Reference,
			Actor:     req.Actor,
		}

		result, err := service.AddEntry(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func removeExitHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sku, ok := bindSKU(c, responder)
		if !ok {
			return
		}

		var req movementRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RemoveExitCommand{
			SKU:       sku,
			Quantity:  req.Quantity,
			Reason:    req.Reason,
			Reference: req.Reference,
			Actor:     req.Actor,
		}

		result, err := service.RemoveExit(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func levelHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sku, ok := bindSKU(c, responder)
		if !ok {
			return
		}

		level, err := service.Level(c.Request.Context(), application.LevelQuery{SKU: sku})
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, level)
	}
}

func movementsHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		sku, ok := bindSKU(c, responder)
		if !ok {
			return
		}

		var params struct {
			Limit int    `form:"limit" json:"limit" binding:"omitempty,gte=0"`
			Kind  string `form:"kind" json:"kind" binding:"omitempty,movement_kind"`
		}
		if appErr := middleware.BindQueryAndValidate(c, &params); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		query := application.HistoryQuery{
			SKU:   sku,
			Kind:  params.Kind,
			Limit: params.Limit,
		}

		movements, err := service.History(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, movements)
	}
}

func lowStockHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		threshold, ok := parseThreshold(c, responder)
		if !ok {
			return
		}

		levels, err := service.LowStock(c.Request.Context(), application.LowStockQuery{Threshold: threshold})
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, levels)
	}
}

func lowStockAlertsHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		threshold, ok := parseThreshold(c, responder)
		if !ok {
			return
		}

		report, err := service.LowStockAlerts(c.Request.Context(), application.LowStockAlertsQuery{Threshold: threshold})
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

func summaryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		summary, err := service.Summary(c.Request.Context())
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

func circuitHealthHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := service.CircuitStats()

		status := "healthy"
		for _, s := range stats {
			if s.State == string(resilience.StateOpen) {
				status = "degraded"
				break
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   status,
			"circuits": stats,
		})
	}
}

// parseThreshold reads the threshold query parameter. An absent parameter
// falls back to the platform default; an explicit 0 means out-of-stock only.
func parseThreshold(c *gin.Context, responder *middleware.ErrorResponder) (int64, bool) {
	raw := c.Query("threshold")
	if raw == "" {
		return domain.DefaultLowStockThreshold, true
	}

	threshold, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || threshold < 0 {
		responder.RespondBadRequest("threshold must be a non-negative integer")
		return 0, false
	}

	return threshold, true
}
