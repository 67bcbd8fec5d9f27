package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

type sweepFixture struct {
	rideRepo   *MockRideRepository
	offerRepo  *MockOfferRepository
	driverRepo *MockDriverRepository
	sweeper    *service.SweeperService
}

func newSweepFixture() *sweepFixture {
	f := &sweepFixture{
		rideRepo:   NewMockRideRepository(),
		offerRepo:  NewMockOfferRepository(),
		driverRepo: NewMockDriverRepository(),
	}
	txm := NewMockTxManager(f.rideRepo, f.offerRepo, f.driverRepo, NewMockPaymentRepository(), NewMockLoyaltyRepository())
	logger := testLogger()
	notifier := service.NewNotificationService(nil, logger)
	strategy := service.NewKinFirstStrategy(NewMockFavoriteRepository(), NewMockLocationStore(), logger)
	matching := service.NewMatchingService(
		txm, f.rideRepo, f.offerRepo, f.driverRepo, NewMockLockStore(), strategy, notifier, logger,
		service.MatchingOptions{})
	f.sweeper = service.NewSweeperService(f.rideRepo, f.offerRepo, matching, logger)
	return f
}

func TestExpireStaleOffers_ExpiresAndRematches(t *testing.T) {
	f := newSweepFixture()

	// An OFFERED ride whose only offer has timed out.
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered, MatchRounds: 1,
	})
	f.offerRepo.AddOffer(&domain.Offer{
		ID: "o1", RideID: "ride-1", DriverID: "d-slow",
		Status:    domain.OfferStatusPending,
		ExpiresAt: time.Now().Add(-time.Second),
	})
	f.rideRepo.Stranded = []string{"ride-1"}

	// A fresh driver is available for the next round.
	f.driverRepo.AddDriver(onlineDriver("d-fresh"))

	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OffersExpired != 1 {
		t.Errorf("expected 1 expired offer, got %d", result.OffersExpired)
	}
	if result.RidesRematch != 1 {
		t.Errorf("expected 1 rematched ride, got %d", result.RidesRematch)
	}

	if got := f.offerRepo.GetOffer("ride-1", "d-slow").Status; got != domain.OfferStatusExpired {
		t.Errorf("stale offer must be EXPIRED, got %s", got)
	}
	ride := f.rideRepo.GetRide("ride-1")
	if ride.Status != domain.RideStatusOffered {
		t.Errorf("ride should be re-OFFERED, got %s", ride.Status)
	}
	if ride.MatchRounds != 2 {
		t.Errorf("rematch should consume a round, got %d", ride.MatchRounds)
	}
	if f.offerRepo.GetOffer("ride-1", "d-fresh") == nil {
		t.Error("expected a fresh offer from the rematch")
	}
}

func TestExpireStaleOffers_ReoffersSameDriver(t *testing.T) {
	f := newSweepFixture()

	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered, MatchRounds: 1,
	})
	first := &domain.Offer{
		ID: "o1", RideID: "ride-1", DriverID: "d1",
		Status:    domain.OfferStatusPending,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	f.offerRepo.AddOffer(first)
	f.rideRepo.Stranded = []string{"ride-1"}

	// The driver who let the first offer lapse is the only one around; the
	// next round must be able to offer the same pair again.
	f.driverRepo.AddDriver(onlineDriver("d1"))

	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesRematch != 1 {
		t.Errorf("expected 1 rematched ride, got %d", result.RidesRematch)
	}

	if got := f.offerRepo.CountOffers("ride-1", "d1"); got != 2 {
		t.Fatalf("expected a second offer row for the pair, got %d", got)
	}
	if first.Status != domain.OfferStatusExpired {
		t.Errorf("first offer must stay EXPIRED, got %s", first.Status)
	}
	fresh := f.offerRepo.GetOffer("ride-1", "d1")
	if fresh.Status != domain.OfferStatusPending || fresh.ID == first.ID {
		t.Errorf("expected a fresh PENDING offer, got %s (%s)", fresh.Status, fresh.ID)
	}
}

func TestExpireStaleOffers_RecoversStalledRequestedRide(t *testing.T) {
	f := newSweepFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered,
		MatchRounds: 1, CreatedAt: time.Now().Add(-time.Minute),
	})
	f.rideRepo.Stranded = []string{"ride-1"}

	// First pass: nobody is online, so the revert leaves the ride REQUESTED.
	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesStranded != 1 {
		t.Fatalf("expected 1 stranded ride, got %d", result.RidesStranded)
	}
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusRequested {
		t.Fatalf("expected REQUESTED after failed rematch, got %s", got)
	}

	// A driver comes online; the next pass must pick the ride up again even
	// though it is no longer OFFERED and carries no schedule.
	f.driverRepo.AddDriver(onlineDriver("d1"))

	result, err = f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesRematch != 1 {
		t.Errorf("expected the stalled ride to be re-dispatched, got %+v", result)
	}
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusOffered {
		t.Errorf("expected OFFERED after recovery, got %s", got)
	}
	if f.offerRepo.GetOffer("ride-1", "d1") == nil {
		t.Error("expected an offer from the recovery round")
	}
}

func TestExpireStaleOffers_StrandedWhenNoDrivers(t *testing.T) {
	f := newSweepFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered, MatchRounds: 1,
	})
	f.rideRepo.Stranded = []string{"ride-1"}

	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesStranded != 1 {
		t.Errorf("expected 1 stranded ride, got %d", result.RidesStranded)
	}
	// The ride falls back to REQUESTED for a later pass.
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusRequested {
		t.Errorf("expected REQUESTED, got %s", got)
	}
}

func TestExpireStaleOffers_RoundCapStopsRematch(t *testing.T) {
	f := newSweepFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered, MatchRounds: 5,
	})
	f.rideRepo.Stranded = []string{"ride-1"}
	f.driverRepo.AddDriver(onlineDriver("d1"))

	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesRematch != 0 || result.RidesStranded != 1 {
		t.Errorf("round-capped ride must not rematch: %+v", result)
	}
	if f.offerRepo.GetOffer("ride-1", "d1") != nil {
		t.Error("no offer should be created past the round cap")
	}
}

func TestExpireStaleOffers_SkipsRideAcceptedMeanwhile(t *testing.T) {
	f := newSweepFixture()
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusAccepted,
	})
	f.rideRepo.Stranded = []string{"ride-1"}

	result, err := f.sweeper.ExpireStaleOffers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesRematch != 0 && result.RidesStranded != 0 {
		t.Errorf("accepted ride must be left alone: %+v", result)
	}
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusAccepted {
		t.Errorf("ride must stay ACCEPTED, got %s", got)
	}
}

func TestTriggerScheduledRides_DispatchesDueRides(t *testing.T) {
	f := newSweepFixture()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(2 * time.Hour)
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-due", RiderID: "rider-1", Status: domain.RideStatusRequested, ScheduledAt: &past,
	})
	f.rideRepo.AddRide(&domain.Ride{
		ID: "ride-later", RiderID: "rider-2", Status: domain.RideStatusRequested, ScheduledAt: &future,
	})
	f.driverRepo.AddDriver(onlineDriver("d1"))

	result, err := f.sweeper.TriggerScheduledRides(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RidesRematch != 1 {
		t.Errorf("expected 1 dispatched ride, got %d", result.RidesRematch)
	}
	if got := f.rideRepo.GetRide("ride-due").Status; got != domain.RideStatusOffered {
		t.Errorf("due ride should be OFFERED, got %s", got)
	}
	if got := f.rideRepo.GetRide("ride-later").Status; got != domain.RideStatusRequested {
		t.Errorf("future ride must stay REQUESTED, got %s", got)
	}
}
