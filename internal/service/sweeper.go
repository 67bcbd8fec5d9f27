package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/observability"
	"dispatch/internal/repository"
)

const (
	sweepBatchLimit = 100

	// stalledGrace keeps the sweeper away from rides whose creation-time
	// dispatch may still be in flight.
	stalledGrace = 30 * time.Second
)

// SweeperService runs the periodic maintenance passes: expiring stale offers
// (and re-dispatching the rides they abandoned) and releasing scheduled rides
// whose time has come. Both passes are safe to run concurrently with user
// traffic and with other sweeper instances; every mutation is a conditional
// write.
type SweeperService struct {
	rideRepo  repository.RideRepository
	offerRepo repository.OfferRepository
	matching  MatchingServiceInterface
	logger    *slog.Logger
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(
	rideRepo repository.RideRepository,
	offerRepo repository.OfferRepository,
	matching MatchingServiceInterface,
	logger *slog.Logger,
) *SweeperService {
	return &SweeperService{
		rideRepo:  rideRepo,
		offerRepo: offerRepo,
		matching:  matching,
		logger:    logger,
	}
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	OffersExpired int64
	RidesRematch  int
	RidesStranded int
}

// ExpireStaleOffers expires every timed-out PENDING offer, then finds rides
// left without a live offer and pushes them back through matching: OFFERED
// rides are reverted to REQUESTED first, and REQUESTED rides stranded by an
// earlier failed dispatch get another round. Rides that still cannot be
// matched (no drivers, round cap) stay REQUESTED and are retried on the next
// pass.
func (s *SweeperService) ExpireStaleOffers(ctx context.Context) (*SweepResult, error) {
	observability.SweepRunsTotal.WithLabelValues("offers").Inc()
	now := time.Now()

	expired, err := s.offerRepo.ExpireStale(ctx, now)
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		observability.OffersExpiredTotal.Add(float64(expired))
	}

	result := &SweepResult{OffersExpired: expired}

	// Snapshot the stalled REQUESTED rides before reverting anything, so a
	// ride reverted below is not processed twice in the same pass.
	stalledIDs, err := s.rideRepo.ListStalledRequested(ctx, now.Add(-stalledGrace), sweepBatchLimit)
	if err != nil {
		return nil, err
	}

	rideIDs, err := s.rideRepo.ListOfferedWithoutPending(ctx, sweepBatchLimit)
	if err != nil {
		return nil, err
	}
	handled := make(map[string]bool, len(rideIDs))
	for _, rideID := range rideIDs {
		handled[rideID] = true
		reverted, err := s.rideRepo.RevertToRequested(ctx, rideID)
		if err != nil {
			s.logger.Error("failed to revert stranded ride", "ride_id", rideID, "error", err)
			continue
		}
		if !reverted {
			// Someone accepted or canceled between the list and the revert.
			continue
		}
		if s.rematch(ctx, rideID) {
			result.RidesRematch++
		} else {
			result.RidesStranded++
		}
	}

	for _, rideID := range stalledIDs {
		if handled[rideID] {
			continue
		}
		if s.rematch(ctx, rideID) {
			result.RidesRematch++
		} else {
			result.RidesStranded++
		}
	}

	if result.OffersExpired > 0 || len(rideIDs) > 0 || len(stalledIDs) > 0 {
		s.logger.Info("offer sweep finished",
			"expired", result.OffersExpired,
			"rematched", result.RidesRematch,
			"stranded", result.RidesStranded)
	}
	return result, nil
}

// TriggerScheduledRides starts matching for REQUESTED rides whose scheduled
// time has arrived.
func (s *SweeperService) TriggerScheduledRides(ctx context.Context) (*SweepResult, error) {
	observability.SweepRunsTotal.WithLabelValues("scheduled").Inc()

	rides, err := s.rideRepo.ListScheduledDue(ctx, time.Now(), sweepBatchLimit)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, ride := range rides {
		if s.rematch(ctx, ride.ID) {
			result.RidesRematch++
		} else {
			result.RidesStranded++
		}
	}

	if len(rides) > 0 {
		s.logger.Info("scheduled sweep finished",
			"due", len(rides), "dispatched", result.RidesRematch)
	}
	return result, nil
}

// rematch runs one matching round for the ride, swallowing the outcomes that
// are expected during a sweep.
func (s *SweeperService) rematch(ctx context.Context, rideID string) bool {
	_, err := s.matching.CreateOffersForRide(ctx, rideID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNoDriversAvailable),
		errors.Is(err, ErrMatchRoundsExhausted),
		errors.Is(err, ErrRideNotRequestable):
		return false
	default:
		s.logger.Error("sweep rematch failed", "ride_id", rideID, "error", err)
		return false
	}
}
