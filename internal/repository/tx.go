package repository

import "context"

// Repos bundles transaction-scoped repositories for multi-row invariants:
// accept-one/expire-rest and complete+settle.
type Repos struct {
	Rides    RideRepository
	Offers   OfferRepository
	Drivers  DriverRepository
	Payments PaymentRepository
	Loyalty  LoyaltyRepository
}

// TxManager runs a function inside a single database transaction. The
// repositories passed to fn share that transaction; returning an error
// rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
