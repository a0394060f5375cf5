package mongodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/commerce-platform/inventory-service/internal/domain"
	"github.com/commerce-platform/inventory-service/pkg/metrics"
	sharedmongo "github.com/commerce-platform/inventory-service/pkg/mongodb"
	sharedtesting "github.com/commerce-platform/inventory-service/pkg/testing"
)

type StockLedgerRepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *sharedtesting.MongoDBContainer
	client         *sharedmongo.Client
	instrumented   *sharedmongo.InstrumentedClient
	repo           *StockLedgerRepository
	ctx            context.Context
}

func (s *StockLedgerRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Transactions require a replica set
	container, err := sharedtesting.NewMongoDBReplicaSetContainer(s.ctx)
	s.Require().NoError(err)
	s.mongoContainer = container

	client, err := sharedmongo.NewClient(s.ctx, &sharedmongo.Config{
		URI:            container.URI,
		Database:       "inventory_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    20,
		MinPoolSize:    1,
		Direct:         true,
	})
	s.Require().NoError(err)
	s.client = client

	m := metrics.New(metrics.DefaultConfig("inventory-service-test"))
	s.instrumented = sharedmongo.NewInstrumentedClient(client, m, nil)
	s.repo = NewStockLedgerRepository(s.instrumented)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Close(s.ctx))
	}
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TearDownTest() {
	// Clean up collections after each test
	s.client.Collection(movementsCollection).Drop(s.ctx)
	s.client.Collection(levelsCollection).Drop(s.ctx)
}

func TestStockLedgerRepositoryIntegrationTestSuite(t *testing.T) {
	sharedtesting.SkipIfShort(t)
	suite.Run(t, new(StockLedgerRepositoryIntegrationTestSuite))
}

func (s *StockLedgerRepositoryIntegrationTestSuite) mustRecordEntry(sku string, quantity int64) *domain.StockLevel {
	movement, err := domain.NewEntryMovement(sku, quantity, "restock", "", "tester")
	s.Require().NoError(err)
	level, err := s.repo.Record(s.ctx, movement)
	s.Require().NoError(err)
	return level
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_EntryCreatesLevel() {
	// Act
	level := s.mustRecordEntry("WIDGET-001", 10)

	// Assert
	s.Equal("WIDGET-001", level.SKU)
	s.Equal(int64(10), level.Quantity)

	history, err := s.repo.History(s.ctx, "WIDGET-001", 10)
	s.Require().NoError(err)
	s.Require().Equal(1, len(history))
	s.Equal(domain.MovementEntry, history[0].Kind)
	s.Equal(int64(10), history[0].Quantity)
	s.NotEmpty(history[0].MovementID.String())
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_EntryThenExit() {
	// Arrange
	s.mustRecordEntry("WIDGET-002", 10)

	// Act
	movement, err := domain.NewExitMovement("WIDGET-002", 4, "order shipped", "ORD-1001", "tester")
	s.Require().NoError(err)
	level, err := s.repo.Record(s.ctx, movement)

	// Assert
	s.Require().NoError(err)
	s.Equal(int64(6), level.Quantity)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_InsufficientStockLeavesNothingBehind() {
	// Arrange
	s.mustRecordEntry("WIDGET-003", 5)

	// Act
	movement, err := domain.NewExitMovement("WIDGET-003", 8, "order shipped", "", "tester")
	s.Require().NoError(err)
	level, err := s.repo.Record(s.ctx, movement)

	// Assert
	s.Nil(level)
	var insufficientErr *domain.InsufficientStockError
	s.Require().True(errors.As(err, &insufficientErr))
	s.Equal("WIDGET-003", insufficientErr.SKU)
	s.Equal(int64(5), insufficientErr.Available)
	s.Equal(int64(8), insufficientErr.Requested)

	// Level unchanged, no exit appended
	current, err := s.repo.Level(s.ctx, "WIDGET-003")
	s.Require().NoError(err)
	s.Equal(int64(5), current.Quantity)

	history, err := s.repo.History(s.ctx, "WIDGET-003", 10)
	s.Require().NoError(err)
	s.Equal(1, len(history))
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_ExitAgainstUnknownSKU() {
	// Act
	movement, err := domain.NewExitMovement("NEVER-SEEN", 1, "order shipped", "", "tester")
	s.Require().NoError(err)
	_, err = s.repo.Record(s.ctx, movement)

	// Assert
	var insufficientErr *domain.InsufficientStockError
	s.Require().True(errors.As(err, &insufficientErr))
	s.Equal(int64(0), insufficientErr.Available)
	s.Equal(int64(1), insufficientErr.Requested)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_ExitToExactlyZero() {
	// Arrange
	s.mustRecordEntry("WIDGET-004", 7)

	// Act
	movement, err := domain.NewExitMovement("WIDGET-004", 7, "order shipped", "", "tester")
	s.Require().NoError(err)
	level, err := s.repo.Record(s.ctx, movement)

	// Assert
	s.Require().NoError(err)
	s.Equal(int64(0), level.Quantity)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestLevel_LazyCreatesAtZero() {
	// Act
	level, err := s.repo.Level(s.ctx, "FRESH-SKU")

	// Assert
	s.Require().NoError(err)
	s.Equal("FRESH-SKU", level.SKU)
	s.Equal(int64(0), level.Quantity)
	s.False(level.UpdatedAt.IsZero())

	// Second read returns the same record
	again, err := s.repo.Level(s.ctx, "FRESH-SKU")
	s.Require().NoError(err)
	s.Equal(int64(0), again.Quantity)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestHistory_NewestFirstWithLimit() {
	// Arrange
	for i := 1; i <= 3; i++ {
		s.mustRecordEntry("WIDGET-005", int64(i))
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	// Act
	history, err := s.repo.History(s.ctx, "WIDGET-005", 2)

	// Assert
	s.Require().NoError(err)
	s.Require().Equal(2, len(history))
	s.Equal(int64(3), history[0].Quantity)
	s.Equal(int64(2), history[1].Quantity)
	s.True(history[0].CreatedAt.After(history[1].CreatedAt))
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestHistory_UnknownSKUIsEmpty() {
	history, err := s.repo.History(s.ctx, "NO-MOVEMENTS", 10)
	s.Require().NoError(err)
	s.Equal(0, len(history))
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestHistoryByKind_FiltersMovements() {
	// Arrange
	s.mustRecordEntry("KIND-SKU", 10)
	movement, err := domain.NewExitMovement("KIND-SKU", 2, "order shipped", "", "tester")
	s.Require().NoError(err)
	_, err = s.repo.Record(s.ctx, movement)
	s.Require().NoError(err)

	// Act
	exits, err := s.repo.HistoryByKind(s.ctx, "KIND-SKU", domain.MovementExit, 10)

	// Assert
	s.Require().NoError(err)
	s.Require().Equal(1, len(exits))
	s.Equal(domain.MovementExit, exits[0].Kind)
	s.Equal(int64(2), exits[0].Quantity)

	entries, err := s.repo.HistoryByKind(s.ctx, "KIND-SKU", domain.MovementEntry, 10)
	s.Require().NoError(err)
	s.Equal(1, len(entries))
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestLowStock_OrderedByQuantity() {
	// Arrange
	s.mustRecordEntry("LOW-A", 3)
	s.mustRecordEntry("LOW-B", 12)
	s.mustRecordEntry("LOW-C", 1)

	// Act
	levels, err := s.repo.LowStock(s.ctx, 5)

	// Assert
	s.Require().NoError(err)
	s.Require().Equal(2, len(levels))
	s.Equal("LOW-C", levels[0].SKU)
	s.Equal("LOW-A", levels[1].SKU)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestSummary() {
	// Arrange
	s.mustRecordEntry("SUM-A", 10)
	s.mustRecordEntry("SUM-B", 3)

	// Act
	summary, err := s.repo.Summary(s.ctx, 5, time.Now().UTC().Add(-time.Hour))

	// Assert
	s.Require().NoError(err)
	s.Equal(int64(2), summary.TrackedItems)
	s.Equal(int64(13), summary.TotalQuantity)
	s.Equal(int64(1), summary.LowStockItems)
	s.Equal(int64(2), summary.RecentMovements)
	s.False(summary.GeneratedAt.IsZero())
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestSummary_SinceExcludesOldMovements() {
	// Arrange
	s.mustRecordEntry("SUM-C", 4)

	// Act
	summary, err := s.repo.Summary(s.ctx, 5, time.Now().UTC().Add(time.Hour))

	// Assert
	s.Require().NoError(err)
	s.Equal(int64(1), summary.TrackedItems)
	s.Equal(int64(0), summary.RecentMovements)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestSummary_EmptyDatabase() {
	summary, err := s.repo.Summary(s.ctx, 5, time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(0), summary.TrackedItems)
	s.Equal(int64(0), summary.TotalQuantity)
	s.Equal(int64(0), summary.RecentMovements)
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestRecord_ConcurrentExitsNeverOversell() {
	// Arrange
	s.mustRecordEntry("HOT-SKU", 10)

	// Act: five concurrent exits of 3 against a level of 10. Write conflicts
	// inside the transaction carry the transient label and are retried by
	// the driver, so every attempt resolves to a clean commit or an
	// insufficient-stock rejection.
	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			movement, err := domain.NewExitMovement("HOT-SKU", 3, "order shipped", "", "tester")
			if err != nil {
				results <- err
				return
			}
			_, err = s.repo.Record(context.Background(), movement)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Assert: exactly three exits fit into 10
	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficientErr *domain.InsufficientStockError
		s.Require().True(errors.As(err, &insufficientErr), "unexpected error: %v", err)
		rejected++
	}
	s.Equal(3, succeeded)
	s.Equal(2, rejected)

	level, err := s.repo.Level(s.ctx, "HOT-SKU")
	s.Require().NoError(err)
	s.Equal(int64(1), level.Quantity)

	history, err := s.repo.History(s.ctx, "HOT-SKU", 10)
	s.Require().NoError(err)
	s.Equal(4, len(history)) // 1 entry + 3 exits
}

func (s *StockLedgerRepositoryIntegrationTestSuite) TestIndexesCreated() {
	// Constructing the repository triggers ensureIndexes
	NewStockLedgerRepository(s.instrumented)
	time.Sleep(100 * time.Millisecond)

	cursor, err := s.client.Collection(movementsCollection).Indexes().List(s.ctx)
	s.Require().NoError(err)
	var movementIndexes []map[string]interface{}
	s.Require().NoError(cursor.All(s.ctx, &movementIndexes))
	s.GreaterOrEqual(len(movementIndexes), 3)

	cursor, err = s.client.Collection(levelsCollection).Indexes().List(s.ctx)
	s.Require().NoError(err)
	var levelIndexes []map[string]interface{}
	s.Require().NoError(cursor.All(s.ctx, &levelIndexes))
	s.GreaterOrEqual(len(levelIndexes), 3)
}
