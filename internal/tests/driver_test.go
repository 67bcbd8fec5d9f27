package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newDriverService() (*service.DriverService, *MockDriverRepository, *MockLocationStore) {
	driverRepo := NewMockDriverRepository()
	locStore := NewMockLocationStore()
	return service.NewDriverService(driverRepo, locStore, testLogger()), driverRepo, locStore
}

func TestGoOnline_RequiresVerification(t *testing.T) {
	svc, driverRepo, _ := newDriverService()
	driverRepo.AddDriver(&domain.DriverProfile{UserID: "d1", IsVerified: false})

	err := svc.GoOnline(context.Background(), "d1")
	if !errors.Is(err, service.ErrDriverNotVerified) {
		t.Fatalf("expected ErrDriverNotVerified, got %v", err)
	}
	if driverRepo.GetDriver("d1").IsOnline {
		t.Error("unverified driver must stay offline")
	}
}

func TestGoOnline_RejectsRevokedDriver(t *testing.T) {
	svc, driverRepo, _ := newDriverService()
	revoked := time.Now().Add(-time.Hour)
	driverRepo.AddDriver(&domain.DriverProfile{
		UserID: "d1", IsVerified: true, VerificationRevokedAt: &revoked,
	})

	err := svc.GoOnline(context.Background(), "d1")
	if !errors.Is(err, service.ErrDriverSuspended) {
		t.Fatalf("expected ErrDriverSuspended, got %v", err)
	}
}

func TestGoOnline_VerifiedDriverSucceeds(t *testing.T) {
	svc, driverRepo, _ := newDriverService()
	driverRepo.AddDriver(&domain.DriverProfile{UserID: "d1", IsVerified: true})

	if err := svc.GoOnline(context.Background(), "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !driverRepo.GetDriver("d1").IsOnline {
		t.Error("driver should be online")
	}
}

func TestGoOffline_RemovesFromGeoIndex(t *testing.T) {
	svc, driverRepo, locStore := newDriverService()
	driverRepo.AddDriver(&domain.DriverProfile{UserID: "d1", IsVerified: true, IsOnline: true})
	_ = locStore.UpdateLocation(context.Background(), "d1", 34.0, -118.0)

	if err := svc.GoOffline(context.Background(), "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driverRepo.GetDriver("d1").IsOnline {
		t.Error("driver should be offline")
	}
	if locStore.HasLocation("d1") {
		t.Error("driver must leave the geo index when going offline")
	}
}

func TestUpdateLocation_WritesBothStores(t *testing.T) {
	svc, driverRepo, locStore := newDriverService()
	driverRepo.AddDriver(&domain.DriverProfile{UserID: "d1", IsVerified: true, IsOnline: true})

	if err := svc.UpdateLocation(context.Background(), "d1", 34.05, -118.24); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !locStore.HasLocation("d1") {
		t.Error("expected geo index entry")
	}
	profile := driverRepo.GetDriver("d1")
	if profile.LastKnownLat == nil || *profile.LastKnownLat != 34.05 {
		t.Error("expected profile position updated")
	}
}

func TestUpdateLocation_RejectsBadCoordinates(t *testing.T) {
	svc, driverRepo, _ := newDriverService()
	driverRepo.AddDriver(&domain.DriverProfile{UserID: "d1", IsVerified: true})

	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}} {
		if err := svc.UpdateLocation(context.Background(), "d1", c[0], c[1]); !errors.Is(err, service.ErrInvalidLocation) {
			t.Errorf("coords %v: expected ErrInvalidLocation, got %v", c, err)
		}
	}
}

func TestRegister_DefaultsToFreePlan(t *testing.T) {
	svc, driverRepo, _ := newDriverService()

	profile, err := svc.Register(context.Background(), service.RegisterDriverRequest{UserID: "d1", Name: "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Plan != domain.DriverPlanFree {
		t.Errorf("expected FREE plan default, got %s", profile.Plan)
	}
	if driverRepo.GetDriver("d1") == nil {
		t.Error("expected persisted profile")
	}
	if profile.IsVerified || profile.IsOnline {
		t.Error("new drivers must start offline and unverified")
	}
}
