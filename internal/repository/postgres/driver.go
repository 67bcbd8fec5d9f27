package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `user_id, name, plan, is_online, is_verified,
	verification_revoked_at, last_known_lat, last_known_lng, created_at`

// Create persists a new driver profile.
func (r *DriverRepository) Create(ctx context.Context, profile *domain.DriverProfile) error {
	query := `
		INSERT INTO driver_profiles (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		profile.UserID,
		profile.Name,
		profile.Plan,
		profile.IsOnline,
		profile.IsVerified,
		nullTime(profile.VerificationRevokedAt),
		nullFloat(profile.LastKnownLat),
		nullFloat(profile.LastKnownLng),
		profile.CreatedAt,
	)
	return err
}

// GetByUserID retrieves a driver profile.
func (r *DriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.DriverProfile, error) {
	query := `SELECT ` + driverColumns + ` FROM driver_profiles WHERE user_id = $1`
	return scanDriver(r.q.QueryRowContext(ctx, query, userID))
}

// ListEligible returns online, verified, non-revoked drivers.
func (r *DriverRepository) ListEligible(ctx context.Context, limit int) ([]*domain.DriverProfile, error) {
	query := `
		SELECT ` + driverColumns + `
		FROM driver_profiles
		WHERE is_online = TRUE AND is_verified = TRUE AND verification_revoked_at IS NULL
		LIMIT $1
	`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.DriverProfile
	for rows.Next() {
		profile, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// SetOnline flips the driver's availability.
func (r *DriverRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	query := `UPDATE driver_profiles SET is_online = $1 WHERE user_id = $2`
	res, err := r.q.ExecContext(ctx, query, online, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateLocation stores the driver's last known position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	query := `UPDATE driver_profiles SET last_known_lat = $1, last_known_lng = $2 WHERE user_id = $3`
	res, err := r.q.ExecContext(ctx, query, lat, lng, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDriver(row rowScanner) (*domain.DriverProfile, error) {
	var profile domain.DriverProfile
	var revokedAt sql.NullTime
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Plan,
		&profile.IsOnline,
		&profile.IsVerified,
		&revokedAt,
		&lat,
		&lng,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if revokedAt.Valid {
		t := revokedAt.Time
		profile.VerificationRevokedAt = &t
	}
	if lat.Valid {
		profile.LastKnownLat = &lat.Float64
	}
	if lng.Valid {
		profile.LastKnownLng = &lng.Float64
	}
	return &profile, nil
}
