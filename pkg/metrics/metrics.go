package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exposes, registered on a
// private registry so tests can build isolated instances.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// MongoDB
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	MongoDBConnectionsOpen   prometheus.Gauge

	// Stock ledger
	MovementsRecorded  *prometheus.CounterVec
	StockExitsRejected *prometheus.CounterVec
	ItemResolutions    *prometheus.CounterVec
	LowStockDetected   *prometheus.CounterVec

	// Circuit breakers
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "commerce",
	}
}

// builder registers collectors as it constructs them
type builder struct {
	namespace string
	registry  *prometheus.Registry
}

func (b *builder) counter(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: b.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	b.registry.MustRegister(c)
	return c
}

func (b *builder) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: b.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	b.registry.MustRegister(h)
	return h
}

func (b *builder) gauge(name, help string, constLabels prometheus.Labels) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   b.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: constLabels,
	})
	b.registry.MustRegister(g)
	return g
}

func (b *builder) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: b.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	b.registry.MustRegister(g)
	return g
}

// New creates a Metrics instance carrying the Go and process collectors
// plus the service's own collector groups
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	b := &builder{namespace: config.Namespace, registry: registry}
	service := prometheus.Labels{"service": config.ServiceName}

	httpBuckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	mongoBuckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

	return &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: b.counter("http_requests_total",
			"Total number of HTTP requests",
			"service", "method", "path", "status"),
		HTTPRequestDuration: b.histogram("http_request_duration_seconds",
			"HTTP request duration in seconds", httpBuckets,
			"service", "method", "path"),
		HTTPRequestsInFlight: b.gauge("http_requests_in_flight",
			"Number of HTTP requests currently being processed", service),

		MongoDBOperations: b.counter("mongodb_operations_total",
			"Total number of MongoDB operations",
			"service", "collection", "operation", "status"),
		MongoDBOperationDuration: b.histogram("mongodb_operation_duration_seconds",
			"MongoDB operation duration in seconds", mongoBuckets,
			"service", "collection", "operation"),
		MongoDBConnectionsOpen: b.gauge("mongodb_connections_open",
			"Number of open MongoDB connections", service),

		MovementsRecorded: b.counter("stock_movements_recorded_total",
			"Total number of stock movements recorded",
			"service", "kind"),
		StockExitsRejected: b.counter("stock_exits_rejected_total",
			"Total number of stock exits rejected for insufficient stock",
			"service"),
		ItemResolutions: b.counter("item_resolutions_total",
			"Total number of catalog item resolutions by outcome",
			"service", "outcome"),
		LowStockDetected: b.counter("low_stock_detected_total",
			"Total number of movements that left an item at or below its threshold",
			"service"),

		CircuitBreakerState: b.gaugeVec("circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=open, 2=half-open)",
			"service", "name"),
		CircuitBreakerTrips: b.counter("circuit_breaker_trips_total",
			"Total number of circuit breaker trips",
			"service", "name"),
	}
}

// Handler returns the scrape endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordHTTPRequest records a finished HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, status).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetMongoDBConnections sets the number of open MongoDB connections
func (m *Metrics) SetMongoDBConnections(count int) {
	m.MongoDBConnectionsOpen.Set(float64(count))
}

// RecordMovement records a stock movement by kind
func (m *Metrics) RecordMovement(kind string) {
	m.MovementsRecorded.WithLabelValues(m.serviceName, kind).Inc()
}

// RecordExitRejected records an exit rejected for insufficient stock
func (m *Metrics) RecordExitRejected() {
	m.StockExitsRejected.WithLabelValues(m.serviceName).Inc()
}

// RecordItemResolution records a catalog item resolution outcome
// (resolved, degraded, or failed)
func (m *Metrics) RecordItemResolution(outcome string) {
	m.ItemResolutions.WithLabelValues(m.serviceName, outcome).Inc()
}

// RecordLowStockDetected records a movement that left an item at or
// below its low-stock threshold
func (m *Metrics) RecordLowStockDetected() {
	m.LowStockDetected.WithLabelValues(m.serviceName).Inc()
}

// SetCircuitBreakerState sets the breaker state gauge
// (0 closed, 1 open, 2 half-open)
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip counts a closed-to-open transition
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
