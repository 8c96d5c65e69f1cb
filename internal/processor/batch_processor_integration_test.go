package processor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housinghistory/server/internal/database"
	"housinghistory/server/internal/models"
	"housinghistory/server/internal/queue"
)

func setupTestDB(t *testing.T) *database.Database {
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.CreateNeighborhood(ctx, models.NameInput{Name: "Riverside"})
	require.NoError(t, err)
	_, err = db.CreatePropertyType(ctx, models.NameInput{Name: "House"})
	require.NoError(t, err)
	_, err = db.CreateOwner(ctx, models.NameInput{Name: "Alice Smith"})
	require.NoError(t, err)
	return db
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBatchProcessingIntegration(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	cfg := testConfig()
	q := queue.NewImportQueue(10, testLogger())
	processor := NewBatchProcessor(db, q, cfg, testLogger())

	processor.Start()
	defer processor.Stop()

	// Create test data
	batch := &models.ImportBatch{
		Properties: []models.PropertyInput{{
			Neighborhood:  "Riverside",
			PropertyType:  "House",
			MarketValue:   decimal.NewFromInt(500000),
			AddressLine1:  "Test Address 1",
			City:          "Springfield",
			State:         "IL",
			ZipCode:       "62704",
			SquareFootage: 2000,
		}},
		Ownerships: []models.OwnershipInput{{PropertyID: 1, OwnerName: "Alice Smith", Year: 2001}},
	}
	require.NoError(t, processor.Submit(batch))

	waitFor(t, func() bool { return processor.Stats().Processed == 1 })

	rows, err := db.PropertiesByOwner(context.Background(), "Alice Smith")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Test Address 1, Springfield, IL 62704", rows[0].Address)
}

func TestBatchProcessingIntegration_InvalidBatchRollsBack(t *testing.T) {
	db := setupTestDB(t)
	q := queue.NewImportQueue(10, testLogger())
	processor := NewBatchProcessor(db, q, testConfig(), testLogger())

	processor.Start()
	defer processor.Stop()

	batch := &models.ImportBatch{
		Properties: []models.PropertyInput{{
			Neighborhood: "Riverside", PropertyType: "House", MarketValue: decimal.NewFromInt(100000),
			AddressLine1: "Orphan St", City: "Springfield", State: "IL", ZipCode: "62704",
		}},
		Ownerships: []models.OwnershipInput{{PropertyID: 1, OwnerName: "Nobody", Year: 2001}},
	}
	require.NoError(t, processor.Submit(batch))

	waitFor(t, func() bool { return processor.Stats().Failed == 1 })
	assert.Equal(t, uint64(0), processor.Stats().Retries)

	rows, err := db.PropertiesInNeighborhood(context.Background(), "Riverside")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
