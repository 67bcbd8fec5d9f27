package domain

import "time"

// RideStatus represents the current status of a ride request.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusOffered    RideStatus = "OFFERED"
	RideStatusAccepted   RideStatus = "ACCEPTED"
	RideStatusArriving   RideStatus = "ARRIVING"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCanceled   RideStatus = "CANCELED"
)

// RideType represents the requested vehicle class.
type RideType string

const (
	RideTypeRegular RideType = "REGULAR"
	RideTypeXL      RideType = "XL"
	RideTypePremium RideType = "PREMIUM"
	RideTypePool    RideType = "POOL"
)

// Ride represents a ride request in the system.
// DriverID is empty until a driver wins the offer race; a canceled ride
// may retain a previously assigned driver.
type Ride struct {
	ID             string
	RiderID        string
	DriverID       string
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	RideType       RideType
	Status         RideStatus
	EstimatedFare  *float64 // nil when fare estimation failed
	PlatformFee    *float64 // set once on completion
	IsKinRide      bool
	ScheduledAt    *time.Time // nil means dispatch immediately
	MatchRounds    int        // matching rounds consumed so far
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the ride is in a final status.
func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCanceled
}
