package processor

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"housinghistory/server/config"
	"housinghistory/server/internal/database"
	"housinghistory/server/internal/models"
	"housinghistory/server/internal/queue"
)

// MockDB is a mock implementation of Transactor
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error {
	args := m.Called(fc)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 2
	cfg.BatchProcessing.MaxRetries = 3
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func testBatch() *models.ImportBatch {
	return &models.ImportBatch{
		Ownerships: []models.OwnershipInput{{PropertyID: 1, OwnerName: "Alice Smith", Year: 2001}},
	}
}

func TestNewBatchProcessor(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	q := queue.NewImportQueue(10, testLogger())
	cfg := testConfig()
	logger := testLogger()

	// Test
	processor := NewBatchProcessor(mockDB, q, cfg, logger)

	// Assert
	assert.NotNil(t, processor)
	assert.Equal(t, mockDB, processor.db)
	assert.Equal(t, q, processor.queue)
	assert.Equal(t, cfg, processor.config)
	assert.Equal(t, logger, processor.logger)
	assert.Equal(t, Stats{QueueCap: 10}, processor.Stats())
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	processor := NewBatchProcessor(mockDB, queue.NewImportQueue(10, testLogger()), testConfig(), testLogger())

	// Test successful processing
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	err := processor.processBatch(testBatch())
	assert.NoError(t, err)

	// Test retry on failure
	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked")).Times(4)
	err = processor.processBatch(testBatch())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 3 attempts")

	mockDB.AssertExpectations(t)
	stats := processor.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(3), stats.Retries)
}

func TestBatchProcessor_PermanentErrorNotRetried(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewBatchProcessor(mockDB, queue.NewImportQueue(10, testLogger()), testConfig(), testLogger())

	notFound := fmt.Errorf("ownership 0: %w: property 99", database.ErrNotFound)
	mockDB.On("Transaction", mock.Anything).Return(notFound).Once()

	err := processor.processBatch(testBatch())
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Contains(t, err.Error(), "batch rejected")

	mockDB.AssertNumberOfCalls(t, "Transaction", 1)
	assert.Equal(t, uint64(0), processor.Stats().Retries)
}

func TestBatchProcessor_RecoversAfterTransientError(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewBatchProcessor(mockDB, queue.NewImportQueue(10, testLogger()), testConfig(), testLogger())

	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked")).Once()
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()

	assert.NoError(t, processor.processBatch(testBatch()))
	stats := processor.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Retries)
	assert.Equal(t, uint64(0), stats.Failed)
}

func TestBatchProcessor_StopInterruptsRetryWait(t *testing.T) {
	mockDB := &MockDB{}
	cfg := testConfig()
	cfg.BatchProcessing.RetryDelay = 60
	processor := NewBatchProcessor(mockDB, queue.NewImportQueue(10, testLogger()), cfg, testLogger())

	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked"))

	done := make(chan error, 1)
	go func() { done <- processor.processBatch(testBatch()) }()

	time.Sleep(50 * time.Millisecond)
	processor.Stop()

	select {
	case err := <-done:
		assert.Contains(t, err.Error(), "cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("retry wait was not interrupted")
	}
}

func TestBatchProcessor_StartStop(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	q := queue.NewImportQueue(10, testLogger())
	processor := NewBatchProcessor(mockDB, q, testConfig(), testLogger())

	processed := make(chan struct{})
	mockDB.On("Transaction", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		close(processed)
	}).Once()

	// Test Start
	processor.Start()
	assert.NoError(t, processor.Submit(testBatch()))

	select {
	case <-processed:
	case <-time.After(5 * time.Second):
		t.Fatal("batch was not processed")
	}

	// Test Stop
	processor.Stop()
	assert.True(t, q.IsClosed())
	assert.ErrorIs(t, processor.Submit(testBatch()), queue.ErrQueueClosed)
}
