package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OfferRepository defines the persistence operations for ride offers.
//
// Claim is the single-winner primitive: it is a compare-and-swap on the
// offer status, and the affected-row count decides the race.
type OfferRepository interface {
	// Create persists a new PENDING offer.
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByRideAndDriver retrieves the latest offer for a (ride, driver) pair.
	GetByRideAndDriver(ctx context.Context, rideID, driverID string) (*domain.Offer, error)

	// ListByRide retrieves all offers for a ride, newest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Offer, error)

	// ListPendingByDriver retrieves the driver's live PENDING offers.
	ListPendingByDriver(ctx context.Context, driverID string, now time.Time) ([]*domain.Offer, error)

	// CountPendingByDriver counts the driver's live PENDING offers across all
	// rides. The matcher skips drivers that still have one outstanding.
	CountPendingByDriver(ctx context.Context, driverID string, now time.Time) (int, error)

	// Claim accepts the (ride, driver) offer only if it is still PENDING and
	// unexpired. Returns false when another write got there first.
	Claim(ctx context.Context, rideID, driverID string, now time.Time) (bool, error)

	// Decline marks the (ride, driver) PENDING offer as DECLINED.
	Decline(ctx context.Context, rideID, driverID string, now time.Time) (bool, error)

	// ExpireSiblings expires every other PENDING offer of the ride after a
	// winner claimed theirs. Returns the number of offers expired.
	ExpireSiblings(ctx context.Context, rideID, winnerDriverID string, now time.Time) (int64, error)

	// ExpirePendingByRide expires all PENDING offers of a ride (cancel cleanup).
	ExpirePendingByRide(ctx context.Context, rideID string, now time.Time) (int64, error)

	// ExpireStale expires every PENDING offer whose TTL has elapsed.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
