package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"housinghistory/server/internal/models"
)

// DashboardBuilder computes a dashboard at a given evaluation time.
type DashboardBuilder interface {
	Dashboard(ctx context.Context, asOf time.Time) (*models.Dashboard, error)
}

// Scheduler periodically rebuilds the dashboard and keeps the latest
// successful snapshot.
type Scheduler struct {
	builder  DashboardBuilder
	logger   *logrus.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential refreshes

	mu       sync.RWMutex
	latest   *models.Dashboard
	lastErr  error
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler
func NewScheduler(builder DashboardBuilder, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		builder:  builder,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start builds a first snapshot and then refreshes it every interval. A
// non-positive interval disables the scheduler.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Dashboard refresh disabled")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop waits for a running refresh to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.Refresh(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Refresh(context.Background())
		}
	}
}

// Refresh rebuilds the snapshot now. A failed refresh keeps the previous
// snapshot.
func (s *Scheduler) Refresh(ctx context.Context) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	start := time.Now()
	dashboard, err := s.builder.Dashboard(ctx, time.Time{})

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.latest = dashboard
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("Dashboard refresh failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"as_of":       dashboard.AsOf,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Dashboard refreshed")
}

// Latest returns the last successful snapshot, or nil before the first one,
// together with the error of the most recent refresh.
func (s *Scheduler) Latest() (*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.lastErr
}
