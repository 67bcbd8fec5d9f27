package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"dispatch/internal/domain"
)

const (
	baseFee     = 3.00
	perMileRate = 2.00

	// roadFactor corrects great-circle distance to an approximate road distance.
	roadFactor = 1.3

	// maxStraightLineMiles is the sanity ceiling: anything farther is treated
	// as a geocoding error, not a valid trip.
	maxStraightLineMiles = 500.0

	earthRadiusMiles = 3958.8
)

// Geocoder resolves a street address to coordinates. A not-found result is
// reported via found=false, not an error.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, found bool, err error)
}

// FareEstimate is a successful fare estimation with the resolved coordinates.
type FareEstimate struct {
	Amount     float64
	PickupLat  float64
	PickupLng  float64
	DropoffLat float64
	DropoffLng float64
}

// Commission is a commission split for a completed ride.
type Commission struct {
	Rate float64
	Fee  float64
}

// LoyaltyCredits is the credit award for a completed ride.
type LoyaltyCredits struct {
	Base        int
	StreakBonus int
	Total       int
}

// PricingService computes fare estimates via the geocoding collaborator.
// Commission and loyalty math are pure package-level functions.
type PricingService struct {
	geocoder Geocoder
	logger   *slog.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(geocoder Geocoder, logger *slog.Logger) *PricingService {
	return &PricingService{geocoder: geocoder, logger: logger}
}

// EstimateFare geocodes both addresses and prices the trip. It returns
// (nil, nil) when either address fails to geocode or the straight-line
// distance exceeds the sanity ceiling; geocoding failures are non-fatal.
func (s *PricingService) EstimateFare(ctx context.Context, pickup, dropoff string) (*FareEstimate, error) {
	pLat, pLng, found, err := s.geocoder.Geocode(ctx, pickup)
	if err != nil || !found {
		if err != nil {
			s.logger.Warn("pickup geocode failed", "address", pickup, "error", err)
		}
		return nil, nil
	}

	dLat, dLng, found, err := s.geocoder.Geocode(ctx, dropoff)
	if err != nil || !found {
		if err != nil {
			s.logger.Warn("dropoff geocode failed", "address", dropoff, "error", err)
		}
		return nil, nil
	}

	miles := HaversineMiles(pLat, pLng, dLat, dLng)
	if miles > maxStraightLineMiles {
		s.logger.Warn("fare estimate rejected, distance over ceiling", "miles", miles)
		return nil, nil
	}

	roadMiles := miles * roadFactor
	fare := roundCents(baseFee + roadMiles*perMileRate)

	return &FareEstimate{
		Amount:     fare,
		PickupLat:  pLat,
		PickupLng:  pLng,
		DropoffLat: dLat,
		DropoffLng: dLng,
	}, nil
}

// ComputeCommission returns the platform's cut of a fare.
// Rate table: standard/FREE=15%, standard/PRO=10%, kin/FREE=8%, kin/PRO=0%.
func ComputeCommission(fare float64, isKinRide bool, plan domain.DriverPlan) Commission {
	var rate float64
	switch {
	case isKinRide && plan == domain.DriverPlanPro:
		rate = 0.0
	case isKinRide:
		rate = 0.08
	case plan == domain.DriverPlanPro:
		rate = 0.10
	default:
		rate = 0.15
	}
	return Commission{Rate: rate, Fee: roundCents(fare * rate)}
}

// ComputeLoyaltyCredits returns the credit award given the rider's streak
// before this ride.
func ComputeLoyaltyCredits(streakWeeks int) LoyaltyCredits {
	credits := LoyaltyCredits{Base: 10}
	if streakWeeks > 0 {
		credits.StreakBonus = 5
	}
	credits.Total = credits.Base + credits.StreakBonus
	return credits
}

// AdvanceStreak applies the weekly streak rule: a ride in the same ISO week
// leaves the streak unchanged, a ride exactly one week later extends it, any
// other gap (or a first ride) resets it to 1.
func AdvanceStreak(lastRideAt, now time.Time, streak int) int {
	if lastRideAt.IsZero() {
		return 1
	}

	prev := isoWeekStart(lastRideAt)
	cur := isoWeekStart(now)
	switch cur.Sub(prev) {
	case 0:
		if streak < 1 {
			return 1
		}
		return streak
	case 7 * 24 * time.Hour:
		return streak + 1
	default:
		return 1
	}
}

// isoWeekStart truncates a time to the Monday 00:00 UTC of its ISO week.
func isoWeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the ISO week
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

// HaversineMiles computes the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
