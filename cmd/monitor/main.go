package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Low-stock reporting tool for the stock_levels collection
// Prints SKUs at or below the threshold plus a quantity distribution

var (
	mongoURI  = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName    = flag.String("db", "inventory", "Database name")
	threshold = flag.Int64("threshold", 5, "Low-stock threshold")
	limit     = flag.Int("limit", 50, "Maximum number of results to display")
)

type LevelInfo struct {
	SKU       string    `bson:"sku"`
	Quantity  int64     `bson:"quantity"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func main() {
	flag.Parse()

	log.Printf("Starting low-stock report (database=%s, threshold=%d)", *dbName, *threshold)

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, disconnect := connect(connectCtx)
	defer disconnect()

	if err := analyzeLevels(context.Background(), db); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
}

func connect(ctx context.Context) (*mongo.Database, func()) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")

	return client.Database(*dbName), func() {
		_ = client.Disconnect(context.Background())
	}
}

func analyzeLevels(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("stock_levels")

	// Get tracked SKU count
	totalCount, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	fmt.Printf("\n=== Collection: stock_levels ===\n")
	fmt.Printf("Tracked SKUs: %d\n\n", totalCount)

	// Find SKUs at or below the threshold, most depleted first
	filter := bson.M{"quantity": bson.M{"$lte": *threshold}}
	opts := options.Find().
		SetSort(bson.D{{Key: "quantity", Value: 1}}).
		SetLimit(int64(*limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer cursor.Close(ctx)

	var lowLevels []LevelInfo
	if err := cursor.All(ctx, &lowLevels); err != nil {
		return fmt.Errorf("failed to decode results: %w", err)
	}

	// Display results
	if len(lowLevels) == 0 {
		fmt.Println("✅ No SKUs at or below the threshold")
		return nil
	}

	fmt.Printf("⚠️  Found %d SKUs at or below quantity %d:\n\n", len(lowLevels), *threshold)
	fmt.Println("SKU                                  Quantity    Updated               Status")
	fmt.Println("-----------------------------------  ----------  --------------------  --------")

	for _, level := range lowLevels {
		fmt.Printf("%-35s  %10d  %-20s  %s\n",
			level.SKU,
			level.Quantity,
			level.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
			getStatus(level.Quantity),
		)
	}

	// Distribution analysis
	fmt.Println("\n=== Quantity Distribution ===")
	if err := analyzeQuantityDistribution(ctx, collection); err != nil {
		log.Printf("WARNING: Failed to analyze distribution: %v", err)
	}

	// Recommendations
	fmt.Println("\n=== Recommendations ===")
	for _, level := range lowLevels {
		if level.Quantity == 0 {
			fmt.Printf("🚨 OUT OF STOCK: SKU %s - restock before accepting further orders\n", level.SKU)
		}
	}

	return nil
}

func analyzeQuantityDistribution(ctx context.Context, collection *mongo.Collection) error {
	buckets := bson.M{
		"groupBy":    "$quantity",
		"boundaries": []int64{0, 1, 11, 51},
		"default":    "51+",
		"output":     bson.M{"count": bson.M{"$sum": 1}},
	}

	cursor, err := collection.Aggregate(ctx, []bson.M{{"$bucket": buckets}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID    interface{} `bson:"_id"`
		Count int         `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	for _, bucket := range results {
		fmt.Printf("  %s: %d SKUs\n", bucketLabel(bucket.ID), bucket.Count)
	}
	return nil
}

func bucketLabel(id interface{}) string {
	var lower int64
	switch v := id.(type) {
	case int32:
		lower = int64(v)
	case int64:
		lower = v
	case float64:
		lower = int64(v)
	default:
		return fmt.Sprintf("%v", id)
	}

	switch lower {
	case 0:
		return "out of stock"
	case 1:
		return "1-10"
	case 11:
		return "11-50"
	}
	return fmt.Sprintf("%d+", lower)
}

func getStatus(quantity int64) string {
	if quantity == 0 {
		return "🔴 OUT"
	} else if quantity <= *threshold/2 {
		return "🟠 CRITICAL"
	}
	return "🟡 LOW"
}
