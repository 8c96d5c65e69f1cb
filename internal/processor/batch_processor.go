package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"housinghistory/server/config"
	"housinghistory/server/internal/database"
	"housinghistory/server/internal/models"
	"housinghistory/server/internal/queue"
)

// Transactor runs a function inside a database transaction.
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Stats are the import counters since start-up.
type Stats struct {
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
	Retries     uint64 `json:"retries"`
	QueueLength int    `json:"queue_length"`
	QueueCap    int    `json:"queue_capacity"`
}

// BatchProcessor applies import batches taken from the queue
type BatchProcessor struct {
	db     Transactor
	logger *logrus.Logger
	config *config.Config
	queue  *queue.ImportQueue
	apply  func(tx *gorm.DB, batch *models.ImportBatch) error
	ctx    context.Context
	cancel context.CancelFunc

	processed atomic.Uint64
	failed    atomic.Uint64
	retries   atomic.Uint64
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.ImportQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		apply:  database.ApplyImportBatch,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the queue and starts its workers
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop interrupts retry waits and shuts the queue down, waiting for batches
// in flight.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.queue.Close()
}

// Submit enqueues a batch for asynchronous import.
func (p *BatchProcessor) Submit(batch *models.ImportBatch) error {
	return p.queue.Push(batch)
}

func (p *BatchProcessor) Stats() Stats {
	return Stats{
		Processed:   p.processed.Load(),
		Failed:      p.failed.Load(),
		Retries:     p.retries.Load(),
		QueueLength: p.queue.Len(),
		QueueCap:    p.queue.Cap(),
	}
}

// processBatch applies a single batch in one transaction. Transient failures
// are retried; invalid data is not.
func (p *BatchProcessor) processBatch(batch *models.ImportBatch) error {
	maxRetries := p.config.BatchProcessing.MaxRetries
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.retries.Add(1)
			p.logger.Infof("Retrying batch import, attempt %d of %d", attempt, maxRetries)
			select {
			case <-p.ctx.Done():
				p.failed.Add(1)
				return fmt.Errorf("batch import cancelled: %w", err)
			case <-time.After(delay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			return p.apply(tx, batch)
		})

		if err == nil {
			p.processed.Add(1)
			p.logger.WithFields(logrus.Fields{
				"properties": len(batch.Properties),
				"ownerships": len(batch.Ownerships),
				"rentals":    len(batch.Rentals),
			}).Info("Successfully imported batch")
			return nil
		}

		if database.IsPermanent(err) {
			p.failed.Add(1)
			return fmt.Errorf("batch rejected: %w", err)
		}
		p.logger.WithError(err).Error("Batch import failed")
	}

	p.failed.Add(1)
	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries, err)
}
