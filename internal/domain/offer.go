package domain

import "time"

// OfferStatus represents the current status of a ride offer.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusDeclined OfferStatus = "DECLINED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
)

// Offer is one driver's time-bounded invitation to serve a ride request.
// At most one offer per ride ever reaches ACCEPTED; terminal offers are
// immutable (all writes are status-guarded at the storage layer).
type Offer struct {
	ID          string
	RideID      string
	DriverID    string
	Status      OfferStatus
	OfferedAt   time.Time
	ExpiresAt   time.Time
	RespondedAt *time.Time
}

// IsExpired reports whether the offer's TTL has elapsed at the given time.
func (o *Offer) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
