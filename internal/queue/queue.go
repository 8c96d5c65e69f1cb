package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"housinghistory/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one import batch.
type Handler func(*models.ImportBatch) error

// ImportQueue is an in-memory queue of import batches consumed by a fixed
// number of workers.
type ImportQueue struct {
	items    chan *models.ImportBatch
	done     chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	workers  sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

// NewImportQueue creates a queue holding at most bufferSize pending batches.
func NewImportQueue(bufferSize int, logger *logrus.Logger) *ImportQueue {
	return &ImportQueue{
		items:    make(chan *models.ImportBatch, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push enqueues a batch without blocking.
func (q *ImportQueue) Push(batch *models.ImportBatch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", batch.Size()).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that is called for each batch. Every handler
// sees every batch exactly once.
func (q *ImportQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches the consumer goroutines. Calling it again is a no-op.
func (q *ImportQueue) Start(workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process(i)
	}
}

func (q *ImportQueue) process(worker int) {
	defer q.workers.Done()
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(worker, batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *ImportQueue) processBatch(worker int, batch *models.ImportBatch) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("worker", worker).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches and waits for the batches being processed.
// Batches still waiting in the queue are dropped.
func (q *ImportQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.workers.Wait()
	if pending := len(q.items); pending > 0 {
		q.logger.WithField("pending", pending).Warn("Dropped queued import batches on shutdown")
	}
	return nil
}

// Len returns the current number of batches in the queue
func (q *ImportQueue) Len() int {
	return len(q.items)
}

// Cap returns the maximum number of pending batches.
func (q *ImportQueue) Cap() int {
	return q.maxSize
}

// IsClosed returns whether the queue has been closed
func (q *ImportQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
