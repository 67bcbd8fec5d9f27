package postgres

import (
	"context"
	"database/sql"
)

// FavoriteRepository is a PostgreSQL implementation of repository.FavoriteRepository.
type FavoriteRepository struct {
	q Querier
}

// NewFavoriteRepository creates a new PostgreSQL favorite repository.
func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{q: db}
}

// ListDriverIDs returns the rider's favorited driver IDs.
func (r *FavoriteRepository) ListDriverIDs(ctx context.Context, riderID string) ([]string, error) {
	query := `SELECT driver_id FROM favorite_drivers WHERE rider_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.QueryContext(ctx, query, riderID)
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

// Exists reports whether the rider has favorited the driver.
func (r *FavoriteRepository) Exists(ctx context.Context, riderID, driverID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM favorite_drivers WHERE rider_id = $1 AND driver_id = $2)`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, riderID, driverID).Scan(&exists)
	return exists, err
}
