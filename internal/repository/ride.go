package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for ride requests.
//
// All status mutations are conditional writes: they succeed only when the
// ride is still in the expected prior status, and report the outcome via the
// returned bool. Callers must never trust a prior read as proof of current
// state.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// UpdateStatus moves the ride from one status to another.
	// Returns false when the ride is no longer in the expected status.
	UpdateStatus(ctx context.Context, id string, from, to domain.RideStatus) (bool, error)

	// MarkOffered flips a REQUESTED ride to OFFERED and increments its match
	// round counter. Returns false when the ride is not REQUESTED anymore,
	// which makes concurrent matcher invocations safe.
	MarkOffered(ctx context.Context, id string) (bool, error)

	// AssignDriver binds the winning driver and moves an OFFERED ride to
	// ACCEPTED. Returns false when the ride left OFFERED in the meantime.
	AssignDriver(ctx context.Context, id, driverID string) (bool, error)

	// Cancel moves the ride from the expected status to CANCELED and records
	// the reason. Returns false when the status no longer matches.
	Cancel(ctx context.Context, id string, from domain.RideStatus, reason string) (bool, error)

	// RevertToRequested moves an OFFERED ride with no live offers back to
	// REQUESTED so the sweeper can re-run matching.
	RevertToRequested(ctx context.Context, id string) (bool, error)

	// SetPlatformFee records the commission fee once. Returns false when a
	// fee is already set.
	SetPlatformFee(ctx context.Context, id string, fee float64) (bool, error)

	// HasActiveByDriver reports whether the driver is bound to a ride in
	// ACCEPTED, ARRIVING or IN_PROGRESS.
	HasActiveByDriver(ctx context.Context, driverID string) (bool, error)

	// ListScheduledDue returns REQUESTED rides whose scheduled time has
	// arrived.
	ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*domain.Ride, error)

	// ListOfferedWithoutPending returns IDs of OFFERED rides that have no
	// PENDING offer left (all expired or declined).
	ListOfferedWithoutPending(ctx context.Context, limit int) ([]string, error)

	// ListStalledRequested returns IDs of unscheduled REQUESTED rides created
	// before the cutoff that have no PENDING offer, i.e. rides a failed
	// dispatch left behind.
	ListStalledRequested(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}
