package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/observability"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	defaultOfferTTL       = 25 * time.Second
	defaultMatchBatchSize = 5
	defaultMaxMatchRounds = 5

	eligibleScanLimit = 50
	matchLockTTL      = 10 * time.Second
)

// MatchingOptions tunes one matching round.
type MatchingOptions struct {
	OfferTTL       time.Duration
	BatchSize      int
	MaxMatchRounds int
}

func (o MatchingOptions) withDefaults() MatchingOptions {
	if o.OfferTTL <= 0 {
		o.OfferTTL = defaultOfferTTL
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultMatchBatchSize
	}
	if o.MaxMatchRounds <= 0 {
		o.MaxMatchRounds = defaultMaxMatchRounds
	}
	return o
}

// MatchingService selects eligible drivers for a ride and issues
// time-bounded offers.
type MatchingService struct {
	txm        repository.TxManager
	rideRepo   repository.RideRepository
	offerRepo  repository.OfferRepository
	driverRepo repository.DriverRepository
	lockStore  redis.LockStoreInterface
	strategy   SelectionStrategy
	notifier   *NotificationService
	logger     *slog.Logger
	opts       MatchingOptions
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	txm repository.TxManager,
	rideRepo repository.RideRepository,
	offerRepo repository.OfferRepository,
	driverRepo repository.DriverRepository,
	lockStore redis.LockStoreInterface,
	strategy SelectionStrategy,
	notifier *NotificationService,
	logger *slog.Logger,
	opts MatchingOptions,
) *MatchingService {
	return &MatchingService{
		txm:        txm,
		rideRepo:   rideRepo,
		offerRepo:  offerRepo,
		driverRepo: driverRepo,
		lockStore:  lockStore,
		strategy:   strategy,
		notifier:   notifier,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// MatchResult is the outcome of one matching round.
type MatchResult struct {
	Ride          *domain.Ride
	OffersCreated int
}

// CreateOffersForRide runs one matching round: it selects eligible drivers,
// creates PENDING offers with a short TTL and flips the ride to OFFERED.
// The OFFERED flip is a conditional write inside the same transaction as the
// offer inserts, so overlapping invocations (user retry, concurrent sweeps)
// resolve to a single round. With zero eligible drivers the ride stays
// REQUESTED and ErrNoDriversAvailable is returned.
func (s *MatchingService) CreateOffersForRide(ctx context.Context, rideID string) (*MatchResult, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	started := time.Now()

	// The redis lock only trims wasted work; the MarkOffered guard below is
	// what makes concurrent rounds safe.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireMatchLock(ctx, rideID, matchLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrRideNotRequestable
		}
		defer func() { _ = s.lockStore.ReleaseMatchLock(ctx, rideID) }()
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if ride.Status != domain.RideStatusRequested {
		return nil, ErrRideNotRequestable
	}
	if ride.ScheduledAt != nil && ride.ScheduledAt.After(now) {
		return nil, ErrRideNotRequestable
	}
	if ride.MatchRounds >= s.opts.MaxMatchRounds {
		return nil, ErrMatchRoundsExhausted
	}

	selected, err := s.selectDrivers(ctx, ride, now)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		observability.MatchNoDriversTotal.Inc()
		return nil, ErrNoDriversAvailable
	}

	offers := make([]*domain.Offer, 0, len(selected))
	for _, driver := range selected {
		offers = append(offers, &domain.Offer{
			ID:        uuid.New().String(),
			RideID:    ride.ID,
			DriverID:  driver.UserID,
			Status:    domain.OfferStatusPending,
			OfferedAt: now,
			ExpiresAt: now.Add(s.opts.OfferTTL),
		})
	}

	err = s.txm.WithinTx(ctx, func(r repository.Repos) error {
		claimed, err := r.Rides.MarkOffered(ctx, ride.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrRideNotRequestable
		}
		for _, offer := range offers {
			if err := r.Offers.Create(ctx, offer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ride.Status = domain.RideStatusOffered
	ride.MatchRounds++

	observability.MatchRoundsTotal.Inc()
	observability.OffersCreatedTotal.Add(float64(len(offers)))
	observability.MatchLatency.Observe(time.Since(started).Seconds())
	s.logger.Info("offers created",
		"ride_id", ride.ID, "offers", len(offers), "round", ride.MatchRounds)

	// Best-effort driver notifications; a delivery failure never fails the round.
	for _, offer := range offers {
		s.notifier.OfferCreated(ctx, offer.DriverID, ride, offer)
	}

	return &MatchResult{Ride: ride, OffersCreated: len(offers)}, nil
}

// selectDrivers applies eligibility gates, then the pluggable ranking, then
// the batch cap.
func (s *MatchingService) selectDrivers(ctx context.Context, ride *domain.Ride, now time.Time) ([]*domain.DriverProfile, error) {
	candidates, err := s.driverRepo.ListEligible(ctx, eligibleScanLimit)
	if err != nil {
		return nil, err
	}

	eligible := make([]*domain.DriverProfile, 0, len(candidates))
	for _, c := range candidates {
		if c.UserID == ride.RiderID {
			continue
		}
		busy, err := s.rideRepo.HasActiveByDriver(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		if busy {
			continue
		}
		pending, err := s.offerRepo.CountPendingByDriver(ctx, c.UserID, now)
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			continue
		}
		eligible = append(eligible, c)
	}

	ranked := s.strategy.Rank(ctx, ride, eligible)
	if len(ranked) > s.opts.BatchSize {
		ranked = ranked[:s.opts.BatchSize]
	}
	return ranked, nil
}
