package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed match locking.
type LockStoreInterface interface {
	AcquireMatchLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseMatchLock(ctx context.Context, rideID string) error
}

// WalletStoreInterface defines the interface for rider wallet balances.
type WalletStoreInterface interface {
	Balance(ctx context.Context, riderID string) (float64, error)
	Debit(ctx context.Context, riderID string, amount float64) (float64, error)
	Credit(ctx context.Context, riderID string, amount float64) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ WalletStoreInterface   = (*WalletStore)(nil)
)
