package service

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService manages driver availability and location.
type DriverService struct {
	driverRepo repository.DriverRepository
	locations  redis.LocationStoreInterface
	logger     *slog.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(driverRepo repository.DriverRepository, locations redis.LocationStoreInterface, logger *slog.Logger) *DriverService {
	return &DriverService{driverRepo: driverRepo, locations: locations, logger: logger}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	UserID string
	Name   string
	Plan   domain.DriverPlan
}

// Register creates a driver profile. New drivers start offline and
// unverified; verification is handled by a separate back-office surface.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.DriverProfile, error) {
	if req.UserID == "" {
		return nil, ErrInvalidDriverID
	}
	plan := req.Plan
	if plan == "" {
		plan = domain.DriverPlanFree
	}
	if plan != domain.DriverPlanFree && plan != domain.DriverPlanPro {
		return nil, ErrInvalidDriverID
	}

	profile := &domain.DriverProfile{
		UserID:    req.UserID,
		Name:      req.Name,
		Plan:      plan,
		CreatedAt: time.Now(),
	}
	if err := s.driverRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("driver registered", "driver_id", profile.UserID, "plan", profile.Plan)
	return profile, nil
}

// GetProfile retrieves a driver profile.
func (s *DriverService) GetProfile(ctx context.Context, driverID string) (*domain.DriverProfile, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByUserID(ctx, driverID)
}

// GoOnline flips the driver to available, enforcing the verification gates.
func (s *DriverService) GoOnline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	profile, err := s.driverRepo.GetByUserID(ctx, driverID)
	if err != nil {
		return err
	}
	if !profile.CanGoOnline() {
		if profile.VerificationRevokedAt != nil {
			return ErrDriverSuspended
		}
		return ErrDriverNotVerified
	}

	return s.driverRepo.SetOnline(ctx, driverID, true)
}

// GoOffline flips the driver to unavailable and drops them from the geo
// index so they stop appearing in proximity ranking.
func (s *DriverService) GoOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if err := s.driverRepo.SetOnline(ctx, driverID, false); err != nil {
		return err
	}
	if err := s.locations.RemoveLocation(ctx, driverID); err != nil {
		s.logger.Warn("failed to drop driver from geo index", "driver_id", driverID, "error", err)
	}
	return nil
}

// UpdateLocation records the driver's position in both the geo index (for
// proximity ranking) and the profile row (for audit and cold starts).
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidLocation
	}

	if err := s.locations.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		return err
	}
	return s.driverRepo.UpdateLocation(ctx, driverID, lat, lng)
}
