package repository

import (
	"context"

	"dispatch/internal/domain"
)

// LoyaltyRepository defines the persistence operations for rider loyalty.
// The balance upsert and the ledger append must run inside one transaction;
// settlement uses transaction-scoped instances for that.
type LoyaltyRepository interface {
	// GetByRiderID retrieves the rider's loyalty record, or ErrNotFound when
	// the rider has never completed a ride.
	GetByRiderID(ctx context.Context, riderID string) (*domain.RiderLoyalty, error)

	// Upsert creates or replaces the rider's loyalty record.
	Upsert(ctx context.Context, loyalty *domain.RiderLoyalty) error

	// AppendTransaction writes a ledger entry for a credit mutation.
	AppendTransaction(ctx context.Context, txn *domain.LoyaltyTransaction) error
}
