package mongodb

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/commerce-platform/inventory-service/pkg/logging"
	"github.com/commerce-platform/inventory-service/pkg/metrics"
)

// InstrumentedClient wraps a Client so every operation is traced, timed
// and logged
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates an instrumented MongoDB client. Metrics
// and logger may be nil; instrumentation degrades to tracing only.
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection handle
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Collection(name),
		name:       name,
		database:   c.client.dbName,
		metrics:    c.metrics,
		logger:     c.logger,
		tracer:     c.tracer,
	}
}

// Close disconnects the underlying client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings the server inside a span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.clientSpan(ctx, "ping")
	defer span.End()

	err := c.client.HealthCheck(ctx)
	endSpan(span, err)
	return err
}

// WithTransaction runs fn in a session transaction inside a span
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	ctx, span := c.clientSpan(ctx, "transaction")
	defer span.End()

	err := c.client.WithTransaction(ctx, fn)
	endSpan(span, err)
	return err
}

func (c *InstrumentedClient) clientSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.dbName),
		),
	)
}

// PoolMonitor returns an event.PoolMonitor that feeds the open-connections
// gauge. Pass it to Config.PoolMonitor before connecting.
func PoolMonitor(m *metrics.Metrics) *event.PoolMonitor {
	var open int64
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				m.SetMongoDBConnections(int(atomic.AddInt64(&open, 1)))
			case event.ConnectionClosed:
				m.SetMongoDBConnections(int(atomic.AddInt64(&open, -1)))
			}
		},
	}
}

// InstrumentedCollection wraps a collection handle. Every call produces a
// client span, a duration metric and a debug log record.
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.name),
		),
	)
}

func (c *InstrumentedCollection) observe(ctx context.Context, operation string, start time.Time, err error, docs int64) {
	duration := time.Since(start)
	success := err == nil
	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, docs)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// singleResultErr normalizes ErrNoDocuments, which is an outcome rather
// than an operation failure
func singleResultErr(result *mongo.SingleResult) error {
	if err := result.Err(); err != nil && err != mongo.ErrNoDocuments {
		return err
	}
	return nil
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "insertOne")
	defer span.End()

	result, err := c.collection.InsertOne(ctx, document, opts...)

	var docs int64
	if err == nil {
		docs = 1
		span.SetAttributes(attribute.Int64("db.documents", docs))
	}
	c.observe(ctx, "insertOne", start, err, docs)
	endSpan(span, err)

	return result, err
}

// FindOne finds a single document. A miss counts as success with zero
// documents.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "findOne")
	defer span.End()

	result := c.collection.FindOne(ctx, filter, opts...)
	err := singleResultErr(result)

	var docs int64
	if result.Err() == nil {
		docs = 1
	}
	if err == nil {
		span.SetAttributes(attribute.Int64("db.documents", docs))
	}
	c.observe(ctx, "findOne", start, err, docs)
	endSpan(span, err)

	return result
}

// Find returns a cursor over matching documents. The document count is
// not known until the cursor is drained, so it is reported as zero.
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "find")
	defer span.End()

	cursor, err := c.collection.Find(ctx, filter, opts...)
	c.observe(ctx, "find", start, err, 0)
	endSpan(span, err)

	return cursor, err
}

// FindOneAndUpdate atomically updates and returns a single document. A
// miss counts as success with zero documents.
func (c *InstrumentedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "findOneAndUpdate")
	defer span.End()

	result := c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
	err := singleResultErr(result)

	var docs int64
	if result.Err() == nil {
		docs = 1
	}
	if err == nil {
		span.SetAttributes(attribute.Int64("db.documents", docs))
	}
	c.observe(ctx, "findOneAndUpdate", start, err, docs)
	endSpan(span, err)

	return result
}

// CountDocuments counts matching documents
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "countDocuments")
	defer span.End()

	count, err := c.collection.CountDocuments(ctx, filter, opts...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.documents", count))
	}
	c.observe(ctx, "countDocuments", start, err, count)
	endSpan(span, err)

	return count, err
}

// Aggregate runs an aggregation pipeline
func (c *InstrumentedCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "aggregate")
	defer span.End()

	cursor, err := c.collection.Aggregate(ctx, pipeline, opts...)
	c.observe(ctx, "aggregate", start, err, 0)
	endSpan(span, err)

	return cursor, err
}

// CreateIndex creates an index
func (c *InstrumentedCollection) CreateIndex(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "createIndex")
	defer span.End()

	name, err := c.collection.Indexes().CreateOne(ctx, model, opts...)
	if err == nil {
		span.SetAttributes(attribute.String("db.index_name", name))
	}
	c.observe(ctx, "createIndex", start, err, 0)
	endSpan(span, err)

	return name, err
}
