package domain

import "time"

// PaymentStatus represents the current status of a ride payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// RidePayment is the settlement record for a completed ride.
// RideID is unique; once a payment has succeeded it is never recomputed.
type RidePayment struct {
	ID                string
	RideID            string
	AmountTotal       float64
	WalletAmountUsed  float64
	CardAmountCharged float64
	ProviderChargeID  *string
	Status            PaymentStatus
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
