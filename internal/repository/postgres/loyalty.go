package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// LoyaltyRepository is a PostgreSQL implementation of repository.LoyaltyRepository.
type LoyaltyRepository struct {
	q Querier
}

// NewLoyaltyRepository creates a new PostgreSQL loyalty repository.
func NewLoyaltyRepository(db *sql.DB) *LoyaltyRepository {
	return &LoyaltyRepository{q: db}
}

// NewLoyaltyRepositoryWithTx creates a loyalty repository using a transaction.
func NewLoyaltyRepositoryWithTx(tx *sql.Tx) *LoyaltyRepository {
	return &LoyaltyRepository{q: tx}
}

// GetByRiderID retrieves the rider's loyalty record.
func (r *LoyaltyRepository) GetByRiderID(ctx context.Context, riderID string) (*domain.RiderLoyalty, error) {
	query := `
		SELECT rider_id, credits, streak_weeks, lifetime_rides, last_ride_at
		FROM rider_loyalty WHERE rider_id = $1
	`
	var loyalty domain.RiderLoyalty
	var lastRideAt sql.NullTime
	err := r.q.QueryRowContext(ctx, query, riderID).Scan(
		&loyalty.RiderID,
		&loyalty.Credits,
		&loyalty.StreakWeeks,
		&loyalty.LifetimeRides,
		&lastRideAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if lastRideAt.Valid {
		loyalty.LastRideAt = lastRideAt.Time
	}
	return &loyalty, nil
}

// Upsert creates or replaces the rider's loyalty record.
func (r *LoyaltyRepository) Upsert(ctx context.Context, loyalty *domain.RiderLoyalty) error {
	query := `
		INSERT INTO rider_loyalty (rider_id, credits, streak_weeks, lifetime_rides, last_ride_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rider_id) DO UPDATE
		SET credits = EXCLUDED.credits,
		    streak_weeks = EXCLUDED.streak_weeks,
		    lifetime_rides = EXCLUDED.lifetime_rides,
		    last_ride_at = EXCLUDED.last_ride_at
	`
	_, err := r.q.ExecContext(ctx, query,
		loyalty.RiderID,
		loyalty.Credits,
		loyalty.StreakWeeks,
		loyalty.LifetimeRides,
		loyalty.LastRideAt,
	)
	return err
}

// AppendTransaction writes a ledger entry.
func (r *LoyaltyRepository) AppendTransaction(ctx context.Context, txn *domain.LoyaltyTransaction) error {
	query := `
		INSERT INTO loyalty_transactions (id, rider_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.RiderID,
		txn.Amount,
		txn.Reason,
		txn.CreatedAt,
	)
	return err
}
