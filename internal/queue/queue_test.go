package queue

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housinghistory/server/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func batchOf(owner string) *models.ImportBatch {
	return &models.ImportBatch{
		Ownerships: []models.OwnershipInput{{PropertyID: 1, OwnerName: owner, Year: 2000}},
	}
}

func TestNewImportQueue(t *testing.T) {
	q := NewImportQueue(10, testLogger())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.Cap())
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.IsClosed())
}

func TestImportQueue_Push(t *testing.T) {
	q := NewImportQueue(2, testLogger())

	// Test successful push
	err := q.Push(batchOf("a"))
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	require.NoError(t, q.Push(batchOf("b")))
	err = q.Push(batchOf("c"))
	assert.ErrorIs(t, err, ErrQueueFull)

	// Test closed queue
	require.NoError(t, q.Close())
	err = q.Push(batchOf("d"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestImportQueue_Subscribe(t *testing.T) {
	q := NewImportQueue(10, testLogger())

	var (
		mu        sync.Mutex
		processed []string
		wg        sync.WaitGroup
	)
	wg.Add(2)
	q.Subscribe(func(batch *models.ImportBatch) error {
		mu.Lock()
		processed = append(processed, batch.Ownerships[0].OwnerName)
		mu.Unlock()
		wg.Done()
		return nil
	})

	q.Start(1)
	require.NoError(t, q.Push(batchOf("first")))
	require.NoError(t, q.Push(batchOf("second")))
	wg.Wait()

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, processed)
	mu.Unlock()

	require.NoError(t, q.Close())
}

func TestImportQueue_EachBatchOncePerHandler(t *testing.T) {
	q := NewImportQueue(50, testLogger())

	const batches = 20
	var (
		first, second atomic.Int64
		wg            sync.WaitGroup
	)
	wg.Add(2 * batches)
	q.Subscribe(func(*models.ImportBatch) error {
		first.Add(1)
		wg.Done()
		return nil
	})
	q.Subscribe(func(*models.ImportBatch) error {
		second.Add(1)
		wg.Done()
		// Handler errors are logged and do not stop the queue
		return errors.New("handler failed")
	})

	// Several workers must not duplicate deliveries
	q.Start(4)
	q.Start(4)
	for i := 0; i < batches; i++ {
		require.NoError(t, q.Push(batchOf("owner")))
	}
	wg.Wait()

	require.NoError(t, q.Close())
	assert.Equal(t, int64(batches), first.Load())
	assert.Equal(t, int64(batches), second.Load())
}

func TestImportQueue_CloseWaitsForInFlight(t *testing.T) {
	q := NewImportQueue(10, testLogger())

	started := make(chan struct{})
	var finished atomic.Bool
	q.Subscribe(func(*models.ImportBatch) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	q.Start(1)
	require.NoError(t, q.Push(batchOf("slow")))
	<-started

	require.NoError(t, q.Close())
	assert.True(t, finished.Load())
	assert.True(t, q.IsClosed())

	// Test second close (should be no-op)
	assert.NoError(t, q.Close())
}
