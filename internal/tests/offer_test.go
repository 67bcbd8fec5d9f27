package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

type offerFixture struct {
	rideRepo  *MockRideRepository
	offerRepo *MockOfferRepository
	offers    *service.OfferService
}

func newOfferFixture() *offerFixture {
	f := &offerFixture{
		rideRepo:  NewMockRideRepository(),
		offerRepo: NewMockOfferRepository(),
	}
	txm := NewMockTxManager(f.rideRepo, f.offerRepo, NewMockDriverRepository(), NewMockPaymentRepository(), NewMockLoyaltyRepository())
	logger := testLogger()
	f.offers = service.NewOfferService(txm, f.rideRepo, f.offerRepo, service.NewNotificationService(nil, logger), logger)
	return f
}

func offeredRideWithDrivers(f *offerFixture, rideID string, driverIDs ...string) {
	f.rideRepo.AddRide(&domain.Ride{
		ID:      rideID,
		RiderID: "rider-1",
		Status:  domain.RideStatusOffered,
	})
	now := time.Now()
	for _, d := range driverIDs {
		f.offerRepo.AddOffer(&domain.Offer{
			ID:        "offer-" + d,
			RideID:    rideID,
			DriverID:  d,
			Status:    domain.OfferStatusPending,
			OfferedAt: now,
			ExpiresAt: now.Add(30 * time.Second),
		})
	}
}

func TestAcceptOffer_WinnerTakesRide(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1", "d2", "d3")

	ride, err := f.offers.Accept(context.Background(), "ride-1", "d2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted || ride.DriverID != "d2" {
		t.Errorf("expected ACCEPTED ride bound to d2, got %s/%s", ride.Status, ride.DriverID)
	}

	if got := f.offerRepo.GetOffer("ride-1", "d2").Status; got != domain.OfferStatusAccepted {
		t.Errorf("winner's offer should be ACCEPTED, got %s", got)
	}
	for _, loser := range []string{"d1", "d3"} {
		if got := f.offerRepo.GetOffer("ride-1", loser).Status; got != domain.OfferStatusExpired {
			t.Errorf("sibling offer for %s should be EXPIRED, got %s", loser, got)
		}
	}
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusAccepted {
		t.Errorf("stored ride should be ACCEPTED, got %s", got)
	}
}

func TestAcceptOffer_ConcurrentAcceptsHaveOneWinner(t *testing.T) {
	f := newOfferFixture()
	drivers := []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8"}
	offeredRideWithDrivers(f, "ride-1", drivers...)

	var wg sync.WaitGroup
	results := make([]error, len(drivers))
	for i, d := range drivers {
		wg.Add(1)
		go func(i int, driverID string) {
			defer wg.Done()
			_, results[i] = f.offers.Accept(context.Background(), "ride-1", driverID)
		}(i, d)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, service.ErrOfferAlreadyHandled),
			errors.Is(err, service.ErrOfferExpiredOrMissing),
			errors.Is(err, service.ErrRideNoLongerAvailable):
			// Expected loser outcomes.
		default:
			t.Errorf("driver %s got unexpected error: %v", drivers[i], err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	ride := f.rideRepo.GetRide("ride-1")
	if ride.Status != domain.RideStatusAccepted || ride.DriverID == "" {
		t.Errorf("ride should be ACCEPTED with a bound driver, got %s/%q", ride.Status, ride.DriverID)
	}

	accepted := 0
	for _, d := range drivers {
		if f.offerRepo.GetOffer("ride-1", d).Status == domain.OfferStatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly one ACCEPTED offer, got %d", accepted)
	}
}

func TestAcceptOffer_ExpiredOfferRejected(t *testing.T) {
	f := newOfferFixture()
	f.rideRepo.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusOffered})
	f.offerRepo.AddOffer(&domain.Offer{
		ID: "o1", RideID: "ride-1", DriverID: "d1",
		Status:    domain.OfferStatusPending,
		ExpiresAt: time.Now().Add(-time.Second),
	})

	_, err := f.offers.Accept(context.Background(), "ride-1", "d1")
	if !errors.Is(err, service.ErrOfferExpiredOrMissing) {
		t.Fatalf("expected ErrOfferExpiredOrMissing, got %v", err)
	}
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusOffered {
		t.Errorf("ride must be untouched, got %s", got)
	}
}

func TestAcceptOffer_RideNoLongerOffered(t *testing.T) {
	f := newOfferFixture()
	f.rideRepo.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusCanceled})

	_, err := f.offers.Accept(context.Background(), "ride-1", "d1")
	if !errors.Is(err, service.ErrRideNoLongerAvailable) {
		t.Fatalf("expected ErrRideNoLongerAvailable, got %v", err)
	}
}

func TestAcceptOffer_NoOfferForDriver(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1")

	_, err := f.offers.Accept(context.Background(), "ride-1", "d-stranger")
	if !errors.Is(err, service.ErrOfferExpiredOrMissing) {
		t.Fatalf("expected ErrOfferExpiredOrMissing, got %v", err)
	}
}

func TestDeclineOffer(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1", "d2")

	if err := f.offers.Decline(context.Background(), "ride-1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.offerRepo.GetOffer("ride-1", "d1").Status; got != domain.OfferStatusDeclined {
		t.Errorf("expected DECLINED, got %s", got)
	}
	// The ride stays OFFERED while d2's offer is live.
	if got := f.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusOffered {
		t.Errorf("ride should stay OFFERED, got %s", got)
	}

	// Declining twice is a conflict, not a silent no-op.
	err := f.offers.Decline(context.Background(), "ride-1", "d1")
	if !errors.Is(err, service.ErrOfferExpiredOrMissing) {
		t.Fatalf("expected ErrOfferExpiredOrMissing on double decline, got %v", err)
	}
}

func TestAcceptOffer_DeclinedDriverCannotAccept(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1", "d2")

	if err := f.offers.Decline(context.Background(), "ride-1", "d1"); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	_, err := f.offers.Accept(context.Background(), "ride-1", "d1")
	if !errors.Is(err, service.ErrOfferExpiredOrMissing) {
		t.Fatalf("declined offer must not be acceptable, got %v", err)
	}
}

func TestListPendingForDriver(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1")
	// An expired offer on another ride must not show up.
	f.offerRepo.AddOffer(&domain.Offer{
		ID: "o-old", RideID: "ride-2", DriverID: "d1",
		Status:    domain.OfferStatusPending,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	offers, err := f.offers.ListPendingForDriver(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].RideID != "ride-1" {
		t.Errorf("expected only the live offer, got %d", len(offers))
	}
}

func TestListForRide(t *testing.T) {
	f := newOfferFixture()
	offeredRideWithDrivers(f, "ride-1", "d1", "d2")
	if err := f.offers.Decline(context.Background(), "ride-1", "d2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offers, err := f.offers.ListForRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Resolved offers stay visible; the rider sees the whole dispatch trail.
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}

	if _, err := f.offers.ListForRide(context.Background(), "no-such-ride"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown ride, got %v", err)
	}
}
