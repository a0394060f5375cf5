package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commerce-platform/inventory-service/internal/domain"
	sharedmongo "github.com/commerce-platform/inventory-service/pkg/mongodb"
)

const (
	movementsCollection = "stock_movements"
	levelsCollection    = "stock_levels"
)

type StockLedgerRepository struct {
	client    *sharedmongo.InstrumentedClient
	movements *sharedmongo.InstrumentedCollection
	levels    *sharedmongo.InstrumentedCollection
}

func NewStockLedgerRepository(client *sharedmongo.InstrumentedClient) *StockLedgerRepository {
	repo := &StockLedgerRepository{
		client:    client,
		movements: client.Collection(movementsCollection),
		levels:    client.Collection(levelsCollection),
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *StockLedgerRepository) ensureIndexes(ctx context.Context) {
	// History lookup by SKU + time
	r.movements.CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sku", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	// Movement identity
	r.movements.CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "movementId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	// One level per SKU
	r.levels.CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	// Low-stock scans
	r.levels.CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "quantity", Value: 1}},
	})
}

// Record appends the movement and applies its delta to the level inside one
// transaction. The level write happens first so an insufficient exit aborts
// before anything is appended.
func (r *StockLedgerRepository) Record(ctx context.Context, movement *domain.StockMovement) (*domain.StockLevel, error) {
	var level domain.StockLevel

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		updated, err := r.applyToLevel(sessCtx, movement)
		if err != nil {
			return err
		}

		if _, err := r.movements.InsertOne(sessCtx, movement); err != nil {
			return fmt.Errorf("failed to insert stock movement: %w", err)
		}

		level = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &level, nil
}

func (r *StockLedgerRepository) applyToLevel(sessCtx mongo.SessionContext, movement *domain.StockMovement) (*domain.StockLevel, error) {
	if movement.IsExit() {
		// The quantity guard in the filter makes the decrement and the
		// sufficiency check a single atomic operation.
		filter := bson.M{
			"sku":      movement.SKU,
			"quantity": bson.M{"$gte": movement.Quantity},
		}
		update := sharedmongo.Inc("quantity", -movement.Quantity)
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var level domain.StockLevel
		err := r.levels.FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&level)
		if err == mongo.ErrNoDocuments {
			available, readErr := r.readQuantity(sessCtx, movement.SKU)
			if readErr != nil {
				return nil, readErr
			}
			return nil, domain.NewInsufficientStockError(movement.SKU, available, movement.Quantity)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock level: %w", err)
		}

		return &level, nil
	}

	filter := bson.M{"sku": movement.SKU}
	update := sharedmongo.Inc("quantity", movement.Quantity)
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var level domain.StockLevel
	if err := r.levels.FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&level); err != nil {
		return nil, fmt.Errorf("failed to increment stock level: %w", err)
	}

	return &level, nil
}

func (r *StockLedgerRepository) readQuantity(ctx context.Context, sku string) (int64, error) {
	var level domain.StockLevel
	err := r.levels.FindOne(ctx, bson.M{"sku": sku}).Decode(&level)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock level: %w", err)
	}

	return level.Quantity, nil
}

func (r *StockLedgerRepository) Level(ctx context.Context, sku string) (*domain.StockLevel, error) {
	filter := bson.M{"sku": sku}
	update := bson.M{
		"$setOnInsert": bson.M{"quantity": int64(0), "updatedAt": sharedmongo.Now()},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var level domain.StockLevel
	if err := r.levels.FindOneAndUpdate(ctx, filter, update, opts).Decode(&level); err != nil {
		return nil, fmt.Errorf("failed to load stock level: %w", err)
	}

	return &level, nil
}

func (r *StockLedgerRepository) History(ctx context.Context, sku string, limit int) ([]*domain.StockMovement, error) {
	return r.findMovements(ctx, bson.M{"sku": sku}, limit)
}

func (r *StockLedgerRepository) HistoryByKind(ctx context.Context, sku string, kind domain.MovementKind, limit int) ([]*domain.StockMovement, error) {
	return r.findMovements(ctx, bson.M{"sku": sku, "kind": kind.String()}, limit)
}

func (r *StockLedgerRepository) findMovements(ctx context.Context, filter bson.M, limit int) ([]*domain.StockMovement, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.movements.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	movements := []*domain.StockMovement{}
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, fmt.Errorf("failed to decode movements: %w", err)
	}

	return movements, nil
}

func (r *StockLedgerRepository) LowStock(ctx context.Context, threshold int64) ([]*domain.StockLevel, error) {
	filter := bson.M{"quantity": bson.M{"$lte": threshold}}
	opts := options.Find().SetSort(bson.D{{Key: "quantity", Value: 1}})

	cursor, err := r.levels.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock levels: %w", err)
	}
	defer cursor.Close(ctx)

	levels := []*domain.StockLevel{}
	if err := cursor.All(ctx, &levels); err != nil {
		return nil, fmt.Errorf("failed to decode stock levels: %w", err)
	}

	return levels, nil
}

func (r *StockLedgerRepository) Summary(ctx context.Context, threshold int64, since time.Time) (*domain.StockSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "trackedItems", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalQuantity", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
			{Key: "lowStockItems", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$lte", Value: bson.A{"$quantity", threshold}}},
					1,
					0,
				}},
			}}}},
		}}},
	}

	cursor, err := r.levels.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stock levels: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TrackedItems  int64 `bson:"trackedItems"`
		TotalQuantity int64 `bson:"totalQuantity"`
		LowStockItems int64 `bson:"lowStockItems"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}

	summary := &domain.StockSummary{
		Threshold:   threshold,
		Since:       since,
		GeneratedAt: time.Now().UTC(),
	}
	if len(results) > 0 {
		summary.TrackedItems = results[0].TrackedItems
		summary.TotalQuantity = results[0].TotalQuantity
		summary.LowStockItems = results[0].LowStockItems
	}

	recent, err := r.movements.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
	if err != nil {
		return nil, fmt.Errorf("failed to count recent movements: %w", err)
	}
	summary.RecentMovements = recent

	return summary, nil
}
