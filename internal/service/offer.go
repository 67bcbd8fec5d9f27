package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/observability"
	"dispatch/internal/repository"
)

// OfferService resolves a driver's response to an offer. Accept is the
// single-winner path: the compare-and-swap on the offer row decides the
// race, and the sibling expiry plus the ride update commit atomically with
// the claim.
type OfferService struct {
	txm       repository.TxManager
	rideRepo  repository.RideRepository
	offerRepo repository.OfferRepository
	notifier  *NotificationService
	logger    *slog.Logger
}

// NewOfferService creates a new OfferService.
func NewOfferService(
	txm repository.TxManager,
	rideRepo repository.RideRepository,
	offerRepo repository.OfferRepository,
	notifier *NotificationService,
	logger *slog.Logger,
) *OfferService {
	return &OfferService{
		txm:       txm,
		rideRepo:  rideRepo,
		offerRepo: offerRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// Accept claims the driver's PENDING offer for the ride. Exactly one driver
// can win: losers get ErrOfferAlreadyHandled (raced out) or
// ErrOfferExpiredOrMissing (their offer already resolved or timed out).
func (s *OfferService) Accept(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusOffered {
		return nil, ErrRideNoLongerAvailable
	}

	now := time.Now()
	offer, err := s.offerRepo.GetByRideAndDriver(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOfferExpiredOrMissing
		}
		return nil, err
	}
	if offer.Status != domain.OfferStatusPending || offer.IsExpired(now) {
		return nil, ErrOfferExpiredOrMissing
	}

	// The pre-checks above are advisory only; the conditional writes below
	// re-validate everything against current state.
	err = s.txm.WithinTx(ctx, func(r repository.Repos) error {
		claimed, err := r.Offers.Claim(ctx, rideID, driverID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrOfferAlreadyHandled
		}
		if _, err := r.Offers.ExpireSiblings(ctx, rideID, driverID, now); err != nil {
			return err
		}
		assigned, err := r.Rides.AssignDriver(ctx, rideID, driverID)
		if err != nil {
			return err
		}
		if !assigned {
			return ErrRideNoLongerAvailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID

	observability.OffersAcceptedTotal.Inc()
	s.logger.Info("offer accepted", "ride_id", rideID, "driver_id", driverID)
	s.notifier.DriverAccepted(ctx, ride)

	return ride, nil
}

// Decline marks the driver's PENDING offer as DECLINED. The ride stays
// OFFERED; remaining offers and the sweeper keep the dispatch alive.
func (s *OfferService) Decline(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}

	ok, err := s.offerRepo.Decline(ctx, rideID, driverID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferExpiredOrMissing
	}

	observability.OffersDeclinedTotal.Inc()
	s.logger.Info("offer declined", "ride_id", rideID, "driver_id", driverID)
	return nil
}

// ListForRide returns every offer issued for the ride, newest first, so the
// rider can follow the dispatch progress.
func (s *OfferService) ListForRide(ctx context.Context, rideID string) ([]*domain.Offer, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.offerRepo.ListByRide(ctx, rideID)
}

// ListPendingForDriver returns the driver's live offers for polling clients.
func (s *OfferService) ListPendingForDriver(ctx context.Context, driverID string) ([]*domain.Offer, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.offerRepo.ListPendingByDriver(ctx, driverID, time.Now())
}
