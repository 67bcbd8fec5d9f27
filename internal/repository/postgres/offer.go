package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OfferRepository is a PostgreSQL implementation of repository.OfferRepository.
type OfferRepository struct {
	q Querier
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{q: db}
}

// NewOfferRepositoryWithTx creates an offer repository using a transaction.
func NewOfferRepositoryWithTx(tx *sql.Tx) *OfferRepository {
	return &OfferRepository{q: tx}
}

const offerColumns = `id, ride_id, driver_id, status, offered_at, expires_at, responded_at`

// Create persists a new PENDING offer.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO ride_offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		offer.ID,
		offer.RideID,
		offer.DriverID,
		offer.Status,
		offer.OfferedAt,
		offer.ExpiresAt,
		nullTime(offer.RespondedAt),
	)
	return err
}

// GetByRideAndDriver retrieves the latest offer for a (ride, driver) pair.
func (r *OfferRepository) GetByRideAndDriver(ctx context.Context, rideID, driverID string) (*domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM ride_offers
		WHERE ride_id = $1 AND driver_id = $2
		ORDER BY offered_at DESC
		LIMIT 1
	`
	return scanOffer(r.q.QueryRowContext(ctx, query, rideID, driverID))
}

// ListByRide retrieves all offers for a ride, newest first.
func (r *OfferRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM ride_offers
		WHERE ride_id = $1
		ORDER BY offered_at DESC
	`
	return r.queryOffers(ctx, query, rideID)
}

// ListPendingByDriver retrieves the driver's live PENDING offers.
func (r *OfferRepository) ListPendingByDriver(ctx context.Context, driverID string, now time.Time) ([]*domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM ride_offers
		WHERE driver_id = $1 AND status = $2 AND expires_at > $3
		ORDER BY expires_at ASC
	`
	return r.queryOffers(ctx, query, driverID, domain.OfferStatusPending, now)
}

// CountPendingByDriver counts the driver's live PENDING offers.
func (r *OfferRepository) CountPendingByDriver(ctx context.Context, driverID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM ride_offers
		WHERE driver_id = $1 AND status = $2 AND expires_at > $3
	`
	var n int
	err := r.q.QueryRowContext(ctx, query, driverID, domain.OfferStatusPending, now).Scan(&n)
	return n, err
}

// Claim is the single-winner compare-and-swap: the offer flips to ACCEPTED
// only while it is still PENDING and unexpired. Zero rows affected means
// another write won the race.
func (r *OfferRepository) Claim(ctx context.Context, rideID, driverID string, now time.Time) (bool, error) {
	query := `
		UPDATE ride_offers
		SET status = $1, responded_at = $2
		WHERE ride_id = $3 AND driver_id = $4 AND status = $5 AND expires_at > $2
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusAccepted, now, rideID, driverID, domain.OfferStatusPending)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// Decline marks the (ride, driver) PENDING offer as DECLINED.
func (r *OfferRepository) Decline(ctx context.Context, rideID, driverID string, now time.Time) (bool, error) {
	query := `
		UPDATE ride_offers
		SET status = $1, responded_at = $2
		WHERE ride_id = $3 AND driver_id = $4 AND status = $5
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusDeclined, now, rideID, driverID, domain.OfferStatusPending)
	if err != nil {
		return false, err
	}
	return oneRowAffected(res)
}

// ExpireSiblings expires every other PENDING offer of the ride.
func (r *OfferRepository) ExpireSiblings(ctx context.Context, rideID, winnerDriverID string, now time.Time) (int64, error) {
	query := `
		UPDATE ride_offers
		SET status = $1, responded_at = $2
		WHERE ride_id = $3 AND driver_id <> $4 AND status = $5
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusExpired, now, rideID, winnerDriverID, domain.OfferStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpirePendingByRide expires all PENDING offers of a ride.
func (r *OfferRepository) ExpirePendingByRide(ctx context.Context, rideID string, now time.Time) (int64, error) {
	query := `
		UPDATE ride_offers
		SET status = $1, responded_at = $2
		WHERE ride_id = $3 AND status = $4
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusExpired, now, rideID, domain.OfferStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireStale expires every PENDING offer whose TTL has elapsed.
func (r *OfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE ride_offers
		SET status = $1
		WHERE status = $2 AND expires_at <= $3
	`
	res, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusExpired, domain.OfferStatusPending, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *OfferRepository) queryOffers(ctx context.Context, query string, args ...any) ([]*domain.Offer, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var offer domain.Offer
	var respondedAt sql.NullTime

	err := row.Scan(
		&offer.ID,
		&offer.RideID,
		&offer.DriverID,
		&offer.Status,
		&offer.OfferedAt,
		&offer.ExpiresAt,
		&respondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if respondedAt.Valid {
		t := respondedAt.Time
		offer.RespondedAt = &t
	}
	return &offer, nil
}
