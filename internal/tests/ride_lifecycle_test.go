package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

type lifecycleFixture struct {
	rideRepo    *MockRideRepository
	offerRepo   *MockOfferRepository
	driverRepo  *MockDriverRepository
	favRepo     *MockFavoriteRepository
	paymentRepo *MockPaymentRepository
	loyaltyRepo *MockLoyaltyRepository
	charger     *MockCharger
	geocoder    *MockGeocoder
	rides       *service.RideService
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		rideRepo:    NewMockRideRepository(),
		offerRepo:   NewMockOfferRepository(),
		driverRepo:  NewMockDriverRepository(),
		favRepo:     NewMockFavoriteRepository(),
		paymentRepo: NewMockPaymentRepository(),
		loyaltyRepo: NewMockLoyaltyRepository(),
		charger:     &MockCharger{Result: service.ChargeResult{Success: true}},
		geocoder: NewMockGeocoder(map[string][2]float64{
			"pickup":  {34.05, -118.24},
			"dropoff": {34.02, -118.49},
		}),
	}
	txm := NewMockTxManager(f.rideRepo, f.offerRepo, f.driverRepo, f.paymentRepo, f.loyaltyRepo)
	logger := testLogger()
	notifier := service.NewNotificationService(nil, logger)
	pricing := service.NewPricingService(f.geocoder, logger)
	strategy := service.NewKinFirstStrategy(f.favRepo, NewMockLocationStore(), logger)
	matching := service.NewMatchingService(
		txm, f.rideRepo, f.offerRepo, f.driverRepo, NewMockLockStore(), strategy, notifier, logger,
		service.MatchingOptions{})
	settlement := service.NewSettlementService(
		txm, f.rideRepo, f.paymentRepo, f.loyaltyRepo, f.favRepo, f.charger, logger)
	f.rides = service.NewRideService(
		txm, f.rideRepo, f.favRepo, pricing, matching, settlement, notifier, logger)
	return f
}

func TestCreateRide_ImmediateDispatch(t *testing.T) {
	f := newLifecycleFixture()
	f.driverRepo.AddDriver(onlineDriver("d1"))

	resp, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-1",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Ride.Status != domain.RideStatusOffered {
		t.Errorf("expected immediate dispatch to OFFERED, got %s", resp.Ride.Status)
	}
	if resp.OffersCreated != 1 {
		t.Errorf("expected 1 offer, got %d", resp.OffersCreated)
	}
	if resp.Ride.EstimatedFare == nil || *resp.Ride.EstimatedFare <= 3.00 {
		t.Error("expected a positive fare estimate above the base fee")
	}
}

func TestCreateRide_SurvivesNoDrivers(t *testing.T) {
	f := newLifecycleFixture()

	resp, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-1",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
	})
	if err != nil {
		t.Fatalf("ride creation must survive an empty driver pool: %v", err)
	}
	if resp.Ride.Status != domain.RideStatusRequested {
		t.Errorf("expected REQUESTED with no drivers, got %s", resp.Ride.Status)
	}
}

func TestCreateRide_DegradedFareStillCreates(t *testing.T) {
	f := newLifecycleFixture()
	f.geocoder.Coords = nil // nothing resolves

	resp, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-1",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Ride.EstimatedFare != nil {
		t.Error("expected nil estimate when geocoding fails")
	}
}

func TestCreateRide_ScheduledSkipsDispatch(t *testing.T) {
	f := newLifecycleFixture()
	f.driverRepo.AddDriver(onlineDriver("d1"))
	later := time.Now().Add(3 * time.Hour)

	resp, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-1",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
		ScheduledAt:    &later,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Ride.Status != domain.RideStatusRequested || resp.OffersCreated != 0 {
		t.Errorf("scheduled ride must wait, got %s with %d offers", resp.Ride.Status, resp.OffersCreated)
	}
}

func TestCreateRide_Validation(t *testing.T) {
	f := newLifecycleFixture()
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name string
		req  service.CreateRideRequest
		want error
	}{
		{"missing rider", service.CreateRideRequest{PickupAddress: "a", DropoffAddress: "b", RideType: domain.RideTypeRegular}, service.ErrInvalidRiderID},
		{"missing pickup", service.CreateRideRequest{RiderID: "r", DropoffAddress: "b", RideType: domain.RideTypeRegular}, service.ErrInvalidAddress},
		{"bad type", service.CreateRideRequest{RiderID: "r", PickupAddress: "a", DropoffAddress: "b", RideType: "HELICOPTER"}, service.ErrInvalidRideType},
		{"past schedule", service.CreateRideRequest{RiderID: "r", PickupAddress: "a", DropoffAddress: "b", RideType: domain.RideTypeRegular, ScheduledAt: &past}, service.ErrInvalidScheduleTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.rides.CreateRide(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateRide_KinFlagRequiresFavorites(t *testing.T) {
	f := newLifecycleFixture()

	resp, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-1",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
		PreferKin:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Ride.IsKinRide {
		t.Error("kin flag must be false for a rider with no favorites")
	}

	f.favRepo.AddFavorite("rider-2", "d-kin")
	resp, err = f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:        "rider-2",
		PickupAddress:  "pickup",
		DropoffAddress: "dropoff",
		RideType:       domain.RideTypeRegular,
		PreferKin:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Ride.IsKinRide {
		t.Error("kin flag should be set for a rider with favorites")
	}
}

func TestTransition_DriverDrivesForwardPath(t *testing.T) {
	f := newLifecycleFixture()
	fare := 20.0
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusAccepted, EstimatedFare: &fare,
	})
	f.driverRepo.AddDriver(onlineDriver("d1"))

	steps := []domain.RideStatus{
		domain.RideStatusArriving,
		domain.RideStatusInProgress,
		domain.RideStatusCompleted,
	}
	for _, target := range steps {
		result, err := f.rides.Transition(context.Background(), service.TransitionRequest{
			RideID: "ride-1", ActorID: "d1", Target: target,
		})
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if result.Ride.Status != target {
			t.Errorf("expected %s, got %s", target, result.Ride.Status)
		}
	}

	// Completion settled the ride.
	if f.paymentRepo.GetPayment("ride-1") == nil {
		t.Error("expected a payment row after completion")
	}
	if f.rideRepo.GetRide("ride-1").PlatformFee == nil {
		t.Error("expected platform fee recorded after completion")
	}
}

func TestTransition_RejectsInvalidMoves(t *testing.T) {
	f := newLifecycleFixture()

	// Every (from, to) pair outside the transition table must be rejected.
	allowed := map[domain.RideStatus][]domain.RideStatus{
		domain.RideStatusRequested:  {domain.RideStatusCanceled},
		domain.RideStatusOffered:    {domain.RideStatusCanceled},
		domain.RideStatusAccepted:   {domain.RideStatusArriving, domain.RideStatusCanceled},
		domain.RideStatusArriving:   {domain.RideStatusInProgress, domain.RideStatusCanceled},
		domain.RideStatusInProgress: {domain.RideStatusCompleted, domain.RideStatusCanceled},
		domain.RideStatusCompleted:  {},
		domain.RideStatusCanceled:   {},
	}
	all := []domain.RideStatus{
		domain.RideStatusRequested, domain.RideStatusOffered, domain.RideStatusAccepted,
		domain.RideStatusArriving, domain.RideStatusInProgress, domain.RideStatusCompleted,
		domain.RideStatusCanceled,
	}

	isAllowed := func(from, to domain.RideStatus) bool {
		for _, a := range allowed[from] {
			if a == to {
				return true
			}
		}
		return false
	}

	for _, from := range all {
		for _, to := range all {
			if isAllowed(from, to) || from == to {
				continue
			}
			rideID := "ride-" + string(from) + "-" + string(to)
			f.rideRepo.AddRide(&domain.Ride{
				ID: rideID, RiderID: "rider-1", DriverID: "d1", Status: from,
			})
			_, err := f.rides.Transition(context.Background(), service.TransitionRequest{
				RideID: rideID, ActorID: "d1", Target: to,
			})
			if !errors.Is(err, service.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestTransition_ActorPermissions(t *testing.T) {
	f := newLifecycleFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusAccepted,
	})

	// The rider cannot drive the forward path.
	_, err := f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "rider-1", Target: domain.RideStatusArriving,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("rider forward move must be forbidden, got %v", err)
	}

	// A third party cannot cancel.
	_, err = f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "stranger", Target: domain.RideStatusCanceled,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger cancel must be forbidden, got %v", err)
	}

	// The bound driver can cancel.
	result, err := f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "d1", Target: domain.RideStatusCanceled, CancelReason: "flat tire",
	})
	if err != nil {
		t.Fatalf("driver cancel failed: %v", err)
	}
	if result.Ride.Status != domain.RideStatusCanceled || result.Ride.CancelReason != "flat tire" {
		t.Errorf("unexpected cancel result: %+v", result.Ride)
	}
}

func TestTransition_CancelExpiresPendingOffers(t *testing.T) {
	f := newLifecycleFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered,
	})
	f.offerRepo.AddOffer(&domain.Offer{
		ID: "o1", RideID: "ride-1", DriverID: "d1",
		Status: domain.OfferStatusPending, ExpiresAt: time.Now().Add(time.Minute),
	})

	_, err := f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "rider-1", Target: domain.RideStatusCanceled,
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if got := f.offerRepo.GetOffer("ride-1", "d1").Status; got != domain.OfferStatusExpired {
		t.Errorf("pending offer must expire on cancel, got %s", got)
	}
}

func TestTransition_PaymentFailureIsNonFatal(t *testing.T) {
	f := newLifecycleFixture()
	fare := 15.0
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusInProgress, EstimatedFare: &fare,
	})
	f.driverRepo.AddDriver(onlineDriver("d1"))
	f.charger.Result = service.ChargeResult{Success: false, FailureReason: "card declined"}

	result, err := f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "d1", Target: domain.RideStatusCompleted,
	})
	if err != nil {
		t.Fatalf("completion must not fail on charge failure: %v", err)
	}
	if result.Ride.Status != domain.RideStatusCompleted {
		t.Errorf("ride must stay COMPLETED, got %s", result.Ride.Status)
	}
	if result.PaymentError == nil {
		t.Error("expected the charge failure surfaced on the result")
	}
	if got := f.paymentRepo.GetPayment("ride-1").Status; got != domain.PaymentStatusFailed {
		t.Errorf("expected FAILED payment row, got %s", got)
	}
}

func TestTransition_StaleStateDetected(t *testing.T) {
	f := newLifecycleFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusArriving,
	})

	// A concurrent cancel lands between the service's read and its write.
	f.rideRepo.GetRide("ride-1").Status = domain.RideStatusCanceled

	_, err := f.rides.Transition(context.Background(), service.TransitionRequest{
		RideID: "ride-1", ActorID: "d1", Target: domain.RideStatusInProgress,
	})
	if !errors.Is(err, service.ErrInvalidTransition) && !errors.Is(err, service.ErrRideStateChanged) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
}
