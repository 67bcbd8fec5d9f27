package repository

import "context"

// FavoriteRepository reads the rider→driver "kin" relations.
type FavoriteRepository interface {
	// ListDriverIDs returns the rider's favorited driver IDs.
	ListDriverIDs(ctx context.Context, riderID string) ([]string, error)

	// Exists reports whether the rider has favorited the driver.
	Exists(ctx context.Context, riderID, driverID string) (bool, error)
}
