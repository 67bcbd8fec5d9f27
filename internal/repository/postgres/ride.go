package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, pickup_address, dropoff_address,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, ride_type, status,
	estimated_fare, platform_fee, is_kin_ride, scheduled_at, match_rounds,
	cancel_reason, created_at, updated_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.PickupAddress,
		ride.DropoffAddress,
		ride.PickupLat,
		ride.PickupLng,
		ride.DropoffLat,
		ride.DropoffLng,
		ride.RideType,
		ride.Status,
		nullFloat(ride.EstimatedFare),
		nullFloat(ride.PlatformFee),
		ride.IsKinRide,
		nullTime(ride.ScheduledAt),
		ride.MatchRounds,
		nullString(ride.CancelReason),
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// UpdateStatus moves the ride from one status to another via a conditional
// write. The affected-row count is the success signal.
func (r *RideRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RideStatus) (bool, error) {
	query := `UPDATE rides SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// MarkOffered flips a REQUESTED ride to OFFERED and counts the match round.
func (r *RideRepository) MarkOffered(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, match_rounds = match_rounds + 1, updated_at = now()
		WHERE id = $2 AND status = $3
	`
	res, err := r.q.ExecContext(ctx, query, domain.RideStatusOffered, id, domain.RideStatusRequested)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// AssignDriver binds the winning driver to an OFFERED ride.
func (r *RideRepository) AssignDriver(ctx context.Context, id, driverID string) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, driver_id = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`
	res, err := r.q.ExecContext(ctx, query, domain.RideStatusAccepted, driverID, id, domain.RideStatusOffered)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// Cancel moves the ride to CANCELED from the expected status.
func (r *RideRepository) Cancel(ctx context.Context, id string, from domain.RideStatus, reason string) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, cancel_reason = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`
	res, err := r.q.ExecContext(ctx, query, domain.RideStatusCanceled, nullString(reason), id, from)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// RevertToRequested moves an OFFERED ride back to REQUESTED, but only while
// it still has no live PENDING offer.
func (r *RideRepository) RevertToRequested(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		  AND NOT EXISTS (
			SELECT 1 FROM ride_offers o
			WHERE o.ride_id = rides.id AND o.status = $4
		  )
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.RideStatusRequested, id, domain.RideStatusOffered, domain.OfferStatusPending)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// SetPlatformFee records the commission fee exactly once.
func (r *RideRepository) SetPlatformFee(ctx context.Context, id string, fee float64) (bool, error) {
	query := `UPDATE rides SET platform_fee = $1, updated_at = now() WHERE id = $2 AND platform_fee IS NULL`
	res, err := r.q.ExecContext(ctx, query, fee, id)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// HasActiveByDriver reports whether the driver is bound to an active ride.
func (r *RideRepository) HasActiveByDriver(ctx context.Context, driverID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rides
			WHERE driver_id = $1 AND status IN ($2, $3, $4)
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, driverID,
		domain.RideStatusAccepted, domain.RideStatusArriving, domain.RideStatusInProgress,
	).Scan(&exists)
	return exists, err
}

// ListScheduledDue returns REQUESTED rides whose scheduled time has arrived.
func (r *RideRepository) ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`
	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusRequested, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// ListOfferedWithoutPending returns OFFERED rides that have no live offer left.
func (r *RideRepository) ListOfferedWithoutPending(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT r.id FROM rides r
		WHERE r.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM ride_offers o
			WHERE o.ride_id = r.id AND o.status = $2
		  )
		ORDER BY r.updated_at ASC
		LIMIT $3
	`
	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusOffered, domain.OfferStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListStalledRequested returns unscheduled REQUESTED rides older than the
// cutoff with no live offer, so the sweeper can re-run their dispatch.
func (r *RideRepository) ListStalledRequested(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	query := `
		SELECT r.id FROM rides r
		WHERE r.status = $1 AND r.scheduled_at IS NULL AND r.created_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM ride_offers o
			WHERE o.ride_id = r.id AND o.status = $3
		  )
		ORDER BY r.created_at ASC
		LIMIT $4
	`
	rows, err := r.q.QueryContext(ctx, query,
		domain.RideStatusRequested, olderThan, domain.OfferStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, cancelReason sql.NullString
	var estimatedFare, platformFee sql.NullFloat64
	var scheduledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.PickupAddress,
		&ride.DropoffAddress,
		&ride.PickupLat,
		&ride.PickupLng,
		&ride.DropoffLat,
		&ride.DropoffLng,
		&ride.RideType,
		&ride.Status,
		&estimatedFare,
		&platformFee,
		&ride.IsKinRide,
		&scheduledAt,
		&ride.MatchRounds,
		&cancelReason,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}
	if estimatedFare.Valid {
		ride.EstimatedFare = &estimatedFare.Float64
	}
	if platformFee.Valid {
		ride.PlatformFee = &platformFee.Float64
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		ride.ScheduledAt = &t
	}
	return &ride, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
