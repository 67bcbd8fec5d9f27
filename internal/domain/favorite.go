package domain

import "time"

// FavoriteDriver marks a rider's trusted ("kin") driver. It is a read-only
// input to the matcher and commission logic; mutation happens elsewhere.
type FavoriteDriver struct {
	RiderID   string
	DriverID  string
	CreatedAt time.Time
}
