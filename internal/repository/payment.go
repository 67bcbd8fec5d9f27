package repository

import (
	"context"

	"dispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for ride payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicate when a payment
	// already exists for the ride (unique ride_id constraint).
	Create(ctx context.Context, payment *domain.RidePayment) error

	// GetByRideID retrieves the payment for a ride, or ErrNotFound.
	GetByRideID(ctx context.Context, rideID string) (*domain.RidePayment, error)

	// UpdateResult records the outcome of a charge attempt.
	UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, walletUsed, cardCharged float64, providerChargeID *string, failureReason string) error
}
