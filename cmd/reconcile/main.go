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

// Reconciliation tool that recomputes each SKU's stock level from the
// movement log and repairs level documents that have drifted

var (
	mongoURI  = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName    = flag.String("db", "inventory", "Database name")
	dryRun    = flag.Bool("dry-run", true, "Dry run mode (no actual writes)")
	skuFilter = flag.String("sku", "", "Reconcile a single SKU (default: all)")
)

type RecomputedLevel struct {
	SKU          string    `bson:"_id"`
	Quantity     int64     `bson:"quantity"`
	Movements    int64     `bson:"movements"`
	LastMovement time.Time `bson:"lastMovement"`
}

type LevelDocument struct {
	SKU      string `bson:"sku"`
	Quantity int64  `bson:"quantity"`
}

func main() {
	flag.Parse()

	log.Printf("Starting stock level reconciliation...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Dry Run: %v", *dryRun)
	if *skuFilter != "" {
		log.Printf("SKU: %s", *skuFilter)
	}

	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	// Run reconciliation
	if err := reconcileLevels(context.Background(), db); err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}
}

func reconcileLevels(ctx context.Context, db *mongo.Database) error {
	movementsColl := db.Collection("stock_movements")
	levelsColl := db.Collection("stock_levels")

	var (
		totalSKUs      int64
		driftedLevels  int64
		orphanedLevels int64
		repairedLevels int64
	)

	// Recompute each SKU's level as the sum of its signed movements
	match := bson.M{}
	if *skuFilter != "" {
		match["sku"] = *skuFilter
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id": "$sku",
			"quantity": bson.M{"$sum": bson.M{"$cond": []interface{}{
				bson.M{"$eq": []interface{}{"$kind", "ENTRY"}},
				"$quantity",
				bson.M{"$subtract": []interface{}{0, "$quantity"}},
			}}},
			"movements":    bson.M{"$sum": 1},
			"lastMovement": bson.M{"$max": "$createdAt"},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	opts := options.Aggregate().SetAllowDiskUse(true)
	cursor, err := movementsColl.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("failed to aggregate movements: %w", err)
	}
	defer cursor.Close(ctx)

	recomputed := make(map[string]int64)

	for cursor.Next(ctx) {
		var result RecomputedLevel
		if err := cursor.Decode(&result); err != nil {
			log.Printf("WARNING: Failed to decode aggregation result: %v", err)
			continue
		}

		totalSKUs++
		recomputed[result.SKU] = result.Quantity

		var stored LevelDocument
		err := levelsColl.FindOne(ctx, bson.M{"sku": result.SKU}).Decode(&stored)
		if err != nil && err != mongo.ErrNoDocuments {
			log.Printf("WARNING: Failed to read level for SKU %s: %v", result.SKU, err)
			continue
		}

		if err == nil && stored.Quantity == result.Quantity {
			continue
		}

		driftedLevels++
		log.Printf("DRIFT: SKU %s stored=%d recomputed=%d (movements=%d, last=%s)",
			result.SKU, stored.Quantity, result.Quantity, result.Movements,
			result.LastMovement.Format(time.RFC3339))

		if !*dryRun {
			if repairLevel(ctx, levelsColl, result.SKU, result.Quantity) {
				repairedLevels++
			}
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	// Level documents with no movements behind them should read zero
	orphanFilter := bson.M{"quantity": bson.M{"$ne": 0}}
	if *skuFilter != "" {
		orphanFilter["sku"] = *skuFilter
	}

	levelCursor, err := levelsColl.Find(ctx, orphanFilter)
	if err != nil {
		return fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer levelCursor.Close(ctx)

	for levelCursor.Next(ctx) {
		var stored LevelDocument
		if err := levelCursor.Decode(&stored); err != nil {
			log.Printf("WARNING: Failed to decode level document: %v", err)
			continue
		}

		if _, ok := recomputed[stored.SKU]; ok {
			continue
		}

		orphanedLevels++
		log.Printf("ORPHAN: SKU %s stored=%d with no movements, expected 0", stored.SKU, stored.Quantity)

		if !*dryRun {
			if repairLevel(ctx, levelsColl, stored.SKU, 0) {
				repairedLevels++
			}
		}
	}

	if err := levelCursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	// Print summary
	fmt.Println("\n=== Reconciliation Summary ===")
	fmt.Printf("SKUs with movements: %d\n", totalSKUs)
	fmt.Printf("Drifted levels:      %d\n", driftedLevels)
	fmt.Printf("Orphaned levels:     %d\n", orphanedLevels)

	if *dryRun {
		if driftedLevels+orphanedLevels > 0 {
			fmt.Println("\n⚠️  DRY RUN MODE - No actual changes were made")
			fmt.Println("Run with -dry-run=false to repair drifted levels")
		} else {
			fmt.Println("\n✅ All stock levels match the movement log")
		}
	} else {
		fmt.Printf("\n✅ Reconciliation completed: %d levels repaired\n", repairedLevels)
	}

	return nil
}

func repairLevel(ctx context.Context, coll *mongo.Collection, sku string, quantity int64) bool {
	filter := bson.M{"sku": sku}
	update := bson.M{
		"$set": bson.M{
			"quantity":  quantity,
			"updatedAt": time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
		log.Printf("WARNING: Failed to repair level for SKU %s: %v", sku, err)
		return false
	}

	return true
}
