package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidAddress is returned when a pickup or dropoff address is empty.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidRideType is returned when the ride type is unknown.
	ErrInvalidRideType = errors.New("invalid ride type")

	// ErrInvalidScheduleTime is returned when scheduled_at is in the past.
	ErrInvalidScheduleTime = errors.New("scheduled time must be in the future")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrRideNoLongerAvailable is returned when accepting a ride that already
	// left the OFFERED status.
	ErrRideNoLongerAvailable = errors.New("ride no longer available")

	// ErrOfferExpiredOrMissing is returned when no live PENDING offer exists
	// for the (ride, driver) pair.
	ErrOfferExpiredOrMissing = errors.New("offer expired or missing")

	// ErrOfferAlreadyHandled is returned when the conditional claim lost the
	// race: another write resolved the offer first.
	ErrOfferAlreadyHandled = errors.New("offer already handled")

	// ErrInvalidTransition is returned when the target status is not reachable
	// from the ride's current status.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrForbidden is returned when the actor is not allowed to move this ride.
	ErrForbidden = errors.New("actor not allowed for this transition")

	// ErrRideStateChanged is returned when a transition's conditional write
	// finds the ride moved concurrently; the caller should refresh and retry
	// against current state.
	ErrRideStateChanged = errors.New("ride state changed concurrently")

	// ErrNoDriversAvailable is returned when matching finds no eligible driver.
	ErrNoDriversAvailable = errors.New("no drivers available")

	// ErrRideNotRequestable is returned when a ride cannot enter a matching
	// round: wrong status, scheduled for later, or a concurrent round claimed it.
	ErrRideNotRequestable = errors.New("ride not in a matchable state")

	// ErrMatchRoundsExhausted is returned when the re-match cap is hit.
	ErrMatchRoundsExhausted = errors.New("match retry limit reached")

	// ErrDriverNotVerified is returned when an unverified driver tries to go online.
	ErrDriverNotVerified = errors.New("driver not verified")

	// ErrDriverSuspended is returned when a driver with revoked verification
	// tries to go online.
	ErrDriverSuspended = errors.New("driver verification revoked")

	// ErrRideNotCompleted is returned when retrying payment for a ride that
	// is not COMPLETED.
	ErrRideNotCompleted = errors.New("ride not completed")

	// ErrPaymentAlreadySettled is returned when retrying a charge that
	// already succeeded.
	ErrPaymentAlreadySettled = errors.New("payment already settled")

	// ErrChargeFailed is returned when the rider could not be charged; the
	// payment row records the provider's reason.
	ErrChargeFailed = errors.New("charge failed")

	// ErrRateLimited is returned when the caller exceeded the request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)
