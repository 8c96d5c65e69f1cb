package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"housinghistory/server/internal/models"
)

const DefaultPriceExtremesLimit = 5

// Store is the read side of the housing database.
type Store interface {
	OwnershipTurnover(ctx context.Context) ([]models.NeighborhoodTurnover, error)
	PropertiesByOwner(ctx context.Context, fullName string) ([]models.OwnedProperty, error)
	PropertiesByOwnerID(ctx context.Context, ownerID int64) ([]models.OwnedProperty, error)
	NeverRented(ctx context.Context) ([]models.NeverRentedStats, error)
	ActiveRentalIncome(ctx context.Context, asOf time.Time) ([]models.RentalIncome, error)
	PropertiesInNeighborhood(ctx context.Context, name string) ([]models.NeighborhoodProperty, error)
	PropertiesInNeighborhoodID(ctx context.Context, neighborhoodID int64) ([]models.NeighborhoodProperty, error)
	PriceExtremes(ctx context.Context, limit int) ([]models.PriceExtreme, error)
	LatestDiversity(ctx context.Context) ([]models.NeighborhoodDiversity, error)
	NeighborhoodDiversity(ctx context.Context, name string) ([]models.NeighborhoodDiversity, error)
}

// Service runs the analytic reports with a per-report deadline and logs
// how long each one took.
type Service struct {
	store              Store
	logger             *logrus.Logger
	clock              func() time.Time
	priceExtremesLimit int
	timeout            time.Duration
}

type Option func(*Service)

// WithClock replaces the clock used as the default evaluation time.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithPriceExtremesLimit(limit int) Option {
	return func(s *Service) {
		s.priceExtremesLimit = limit
	}
}

// WithTimeout bounds every report. Zero disables the deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.timeout = timeout
	}
}

func NewService(store Store, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:              store,
		logger:             logger,
		clock:              time.Now,
		priceExtremesLimit: DefaultPriceExtremesLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current evaluation time.
func (s *Service) Now() time.Time {
	return s.clock()
}

func (s *Service) OwnershipTurnover(ctx context.Context) ([]models.NeighborhoodTurnover, error) {
	return run(ctx, s, "ownership_turnover", s.store.OwnershipTurnover)
}

func (s *Service) PropertiesByOwner(ctx context.Context, fullName string) ([]models.OwnedProperty, error) {
	return run(ctx, s, "properties_by_owner", func(ctx context.Context) ([]models.OwnedProperty, error) {
		return s.store.PropertiesByOwner(ctx, fullName)
	})
}

func (s *Service) PropertiesByOwnerID(ctx context.Context, ownerID int64) ([]models.OwnedProperty, error) {
	return run(ctx, s, "properties_by_owner", func(ctx context.Context) ([]models.OwnedProperty, error) {
		return s.store.PropertiesByOwnerID(ctx, ownerID)
	})
}

func (s *Service) NeverRented(ctx context.Context) ([]models.NeverRentedStats, error) {
	return run(ctx, s, "never_rented", s.store.NeverRented)
}

// ActiveRentalIncome evaluates rentals at asOf, or at the service clock
// when asOf is the zero time.
func (s *Service) ActiveRentalIncome(ctx context.Context, asOf time.Time) ([]models.RentalIncome, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	return run(ctx, s, "active_rental_income", func(ctx context.Context) ([]models.RentalIncome, error) {
		return s.store.ActiveRentalIncome(ctx, asOf)
	})
}

func (s *Service) PropertiesInNeighborhood(ctx context.Context, name string) ([]models.NeighborhoodProperty, error) {
	return run(ctx, s, "properties_in_neighborhood", func(ctx context.Context) ([]models.NeighborhoodProperty, error) {
		return s.store.PropertiesInNeighborhood(ctx, name)
	})
}

func (s *Service) PropertiesInNeighborhoodID(ctx context.Context, neighborhoodID int64) ([]models.NeighborhoodProperty, error) {
	return run(ctx, s, "properties_in_neighborhood", func(ctx context.Context) ([]models.NeighborhoodProperty, error) {
		return s.store.PropertiesInNeighborhoodID(ctx, neighborhoodID)
	})
}

func (s *Service) PriceExtremes(ctx context.Context) ([]models.PriceExtreme, error) {
	return run(ctx, s, "price_extremes", func(ctx context.Context) ([]models.PriceExtreme, error) {
		return s.store.PriceExtremes(ctx, s.priceExtremesLimit)
	})
}

func (s *Service) Diversity(ctx context.Context) ([]models.NeighborhoodDiversity, error) {
	return run(ctx, s, "diversity", s.store.LatestDiversity)
}

func (s *Service) NeighborhoodDiversity(ctx context.Context, name string) ([]models.NeighborhoodDiversity, error) {
	return run(ctx, s, "neighborhood_diversity", func(ctx context.Context) ([]models.NeighborhoodDiversity, error) {
		return s.store.NeighborhoodDiversity(ctx, name)
	})
}

// Dashboard computes the neighborhood-wide reports concurrently. The first
// failing report cancels the others.
func (s *Service) Dashboard(ctx context.Context, asOf time.Time) (*models.Dashboard, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	dashboard := &models.Dashboard{
		GeneratedAt: s.clock().UTC(),
		AsOf:        asOf.UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dashboard.OwnershipTurnover, err = s.OwnershipTurnover(gctx)
		return err
	})
	g.Go(func() (err error) {
		dashboard.NeverRented, err = s.NeverRented(gctx)
		return err
	})
	g.Go(func() (err error) {
		dashboard.RentalIncome, err = s.ActiveRentalIncome(gctx, asOf)
		return err
	})
	g.Go(func() (err error) {
		dashboard.PriceExtremes, err = s.PriceExtremes(gctx)
		return err
	})
	g.Go(func() (err error) {
		dashboard.Diversity, err = s.Diversity(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return dashboard, nil
}

func run[T any](ctx context.Context, s *Service, report string, fn func(context.Context) ([]T, error)) ([]T, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := fn(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"report":      report,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("Report failed")
		return nil, err
	}
	entry.WithField("rows", len(rows)).Debug("Report computed")
	return rows, nil
}
