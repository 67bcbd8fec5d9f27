package domain

import "time"

// RiderLoyalty tracks a rider's credit balance and weekly ride streak.
type RiderLoyalty struct {
	RiderID       string
	Credits       int
	StreakWeeks   int
	LifetimeRides int
	LastRideAt    time.Time
}

// LoyaltyTransaction is a ledger entry for a credit mutation.
type LoyaltyTransaction struct {
	ID        string
	RiderID   string
	Amount    int
	Reason    string
	CreatedAt time.Time
}

// LoyaltyReasonRideCompleted is the ledger reason recorded on ride completion.
const LoyaltyReasonRideCompleted = "ride_completed"
