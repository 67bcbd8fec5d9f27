package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// MatchingServiceInterface defines the matching contract.
// This interface allows for testing with mock implementations.
type MatchingServiceInterface interface {
	CreateOffersForRide(ctx context.Context, rideID string) (*MatchResult, error)
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

// allowedTransitions is the ride state machine for actor-driven moves.
// REQUESTED→OFFERED and OFFERED→ACCEPTED happen through the matcher and the
// offer resolution path, never through Transition.
var allowedTransitions = map[domain.RideStatus][]domain.RideStatus{
	domain.RideStatusRequested:  {domain.RideStatusCanceled},
	domain.RideStatusOffered:    {domain.RideStatusCanceled},
	domain.RideStatusAccepted:   {domain.RideStatusArriving, domain.RideStatusCanceled},
	domain.RideStatusArriving:   {domain.RideStatusInProgress, domain.RideStatusCanceled},
	domain.RideStatusInProgress: {domain.RideStatusCompleted, domain.RideStatusCanceled},
}

// RideService owns ride creation and the status state machine.
type RideService struct {
	txm          repository.TxManager
	rideRepo     repository.RideRepository
	favoriteRepo repository.FavoriteRepository
	pricing      *PricingService
	matching     MatchingServiceInterface
	settlement   *SettlementService
	notifier     *NotificationService
	logger       *slog.Logger
}

// NewRideService creates a new RideService.
func NewRideService(
	txm repository.TxManager,
	rideRepo repository.RideRepository,
	favoriteRepo repository.FavoriteRepository,
	pricing *PricingService,
	matching MatchingServiceInterface,
	settlement *SettlementService,
	notifier *NotificationService,
	logger *slog.Logger,
) *RideService {
	return &RideService{
		txm:          txm,
		rideRepo:     rideRepo,
		favoriteRepo: favoriteRepo,
		pricing:      pricing,
		matching:     matching,
		settlement:   settlement,
		notifier:     notifier,
		logger:       logger,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID        string
	PickupAddress  string
	DropoffAddress string
	RideType       domain.RideType
	PreferKin      bool
	ScheduledAt    *time.Time
}

// CreateRideResponse contains the result of creating a ride.
type CreateRideResponse struct {
	Ride          *domain.Ride
	OffersCreated int
}

// CreateRide validates the request, estimates the fare (degrading to a null
// estimate on geocoding trouble) and, for immediate rides, triggers a
// matching round synchronously. Scheduled rides wait for the sweeper.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*CreateRideResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	ride := &domain.Ride{
		ID:             uuid.New().String(),
		RiderID:        req.RiderID,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		RideType:       req.RideType,
		Status:         domain.RideStatusRequested,
		IsKinRide:      s.isKinRide(ctx, req),
		ScheduledAt:    req.ScheduledAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	estimate, err := s.pricing.EstimateFare(ctx, req.PickupAddress, req.DropoffAddress)
	if err != nil {
		s.logger.Warn("fare estimation errored, continuing without estimate",
			"ride_id", ride.ID, "error", err)
	}
	if estimate != nil {
		ride.EstimatedFare = &estimate.Amount
		ride.PickupLat = estimate.PickupLat
		ride.PickupLng = estimate.PickupLng
		ride.DropoffLat = estimate.DropoffLat
		ride.DropoffLng = estimate.DropoffLng
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	resp := &CreateRideResponse{Ride: ride}
	if req.ScheduledAt == nil {
		result, err := s.matching.CreateOffersForRide(ctx, ride.ID)
		switch {
		case err == nil:
			resp.Ride = result.Ride
			resp.OffersCreated = result.OffersCreated
		case errors.Is(err, ErrNoDriversAvailable):
			// The ride stays REQUESTED; the sweeper or an explicit retry
			// re-runs matching.
		default:
			return nil, err
		}
	}

	return resp, nil
}

// isKinRide marks the ride for kin dispatch when the rider asked for it and
// actually has favorited drivers.
func (s *RideService) isKinRide(ctx context.Context, req CreateRideRequest) bool {
	if !req.PreferKin {
		return false
	}
	ids, err := s.favoriteRepo.ListDriverIDs(ctx, req.RiderID)
	if err != nil {
		s.logger.Warn("favorite lookup failed on create", "rider_id", req.RiderID, "error", err)
		return false
	}
	return len(ids) > 0
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// TransitionRequest contains the parameters for a status transition.
type TransitionRequest struct {
	RideID       string
	ActorID      string
	Target       domain.RideStatus
	CancelReason string
}

// TransitionResult contains the outcome of a transition. PaymentError is
// non-fatal: a completed ride stays completed even when settlement fails.
type TransitionResult struct {
	Ride         *domain.Ride
	Payment      *domain.RidePayment
	PaymentError error
}

// Transition validates and applies one status transition on behalf of an
// actor. Cancellation expires the ride's pending offers in the same
// transaction; completion triggers settlement synchronously.
func (s *RideService) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.IsTerminal() || !transitionAllowed(ride.Status, req.Target) {
		return nil, ErrInvalidTransition
	}
	if err := s.authorizeActor(ride, req.ActorID, req.Target); err != nil {
		return nil, err
	}

	if req.Target == domain.RideStatusCanceled {
		return s.cancel(ctx, ride, req)
	}

	moved, err := s.rideRepo.UpdateStatus(ctx, ride.ID, ride.Status, req.Target)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrRideStateChanged
	}
	ride.Status = req.Target
	s.logger.Info("ride transitioned", "ride_id", ride.ID, "status", ride.Status)

	result := &TransitionResult{Ride: ride}
	if req.Target == domain.RideStatusCompleted {
		payment, payErr := s.settlement.Settle(ctx, ride)
		result.Payment = payment
		result.PaymentError = payErr
		if payErr != nil {
			s.notifier.PaymentFailed(ctx, ride, payErr.Error())
		}
		// Settlement sets the platform fee; reload so the caller sees it.
		if fresh, err := s.rideRepo.GetByID(ctx, ride.ID); err == nil {
			result.Ride = fresh
		}
	}
	return result, nil
}

// cancel moves the ride to CANCELED and expires its pending offers
// atomically, so no stale offer can be accepted against a dead ride.
func (s *RideService) cancel(ctx context.Context, ride *domain.Ride, req TransitionRequest) (*TransitionResult, error) {
	now := time.Now()
	err := s.txm.WithinTx(ctx, func(r repository.Repos) error {
		canceled, err := r.Rides.Cancel(ctx, ride.ID, ride.Status, req.CancelReason)
		if err != nil {
			return err
		}
		if !canceled {
			return ErrRideStateChanged
		}
		_, err = r.Offers.ExpirePendingByRide(ctx, ride.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	ride.Status = domain.RideStatusCanceled
	ride.CancelReason = req.CancelReason
	s.logger.Info("ride canceled", "ride_id", ride.ID, "by", req.ActorID)
	s.notifier.RideCanceled(ctx, ride, req.ActorID)

	return &TransitionResult{Ride: ride}, nil
}

// authorizeActor enforces the actor column of the transition table: only the
// bound driver moves a ride forward, while either party may cancel.
func (s *RideService) authorizeActor(ride *domain.Ride, actorID string, target domain.RideStatus) error {
	if actorID == "" {
		return ErrForbidden
	}
	if target == domain.RideStatusCanceled {
		if actorID == ride.RiderID || (ride.DriverID != "" && actorID == ride.DriverID) {
			return nil
		}
		return ErrForbidden
	}
	if ride.DriverID == "" || actorID != ride.DriverID {
		return ErrForbidden
	}
	return nil
}

func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if req.PickupAddress == "" || req.DropoffAddress == "" {
		return ErrInvalidAddress
	}
	switch req.RideType {
	case domain.RideTypeRegular, domain.RideTypeXL, domain.RideTypePremium, domain.RideTypePool:
	default:
		return ErrInvalidRideType
	}
	if req.ScheduledAt != nil && !req.ScheduledAt.After(time.Now()) {
		return ErrInvalidScheduleTime
	}
	return nil
}

func transitionAllowed(from, to domain.RideStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
