package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverRepository defines the persistence operations for driver profiles.
type DriverRepository interface {
	// Create persists a new driver profile.
	Create(ctx context.Context, profile *domain.DriverProfile) error

	// GetByUserID retrieves a driver profile.
	GetByUserID(ctx context.Context, userID string) (*domain.DriverProfile, error)

	// ListEligible returns online, verified, non-revoked drivers.
	ListEligible(ctx context.Context, limit int) ([]*domain.DriverProfile, error)

	// SetOnline flips the driver's availability.
	SetOnline(ctx context.Context, userID string, online bool) error

	// UpdateLocation stores the driver's last known position.
	UpdateLocation(ctx context.Context, userID string, lat, lng float64) error
}
