package service

import (
	"context"
	"log/slog"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const geoSearchRadiusKm = 10.0

// SelectionStrategy orders the eligible drivers for one matching round.
// The ranking policy is deliberately pluggable; the matcher only fixes
// eligibility and the batch cap.
type SelectionStrategy interface {
	Rank(ctx context.Context, ride *domain.Ride, candidates []*domain.DriverProfile) []*domain.DriverProfile
}

// KinFirstStrategy puts the rider's favorited drivers ahead of the general
// pool, then orders the rest by proximity to the pickup point using the
// redis geo index. Drivers without a known position go last.
type KinFirstStrategy struct {
	favorites repository.FavoriteRepository
	locations redis.LocationStoreInterface
	logger    *slog.Logger
}

// NewKinFirstStrategy creates the default selection strategy.
func NewKinFirstStrategy(favorites repository.FavoriteRepository, locations redis.LocationStoreInterface, logger *slog.Logger) *KinFirstStrategy {
	return &KinFirstStrategy{favorites: favorites, locations: locations, logger: logger}
}

// Rank orders candidates: favorites, then proximity, then the rest.
func (s *KinFirstStrategy) Rank(ctx context.Context, ride *domain.Ride, candidates []*domain.DriverProfile) []*domain.DriverProfile {
	favoriteSet := make(map[string]bool)
	if ids, err := s.favorites.ListDriverIDs(ctx, ride.RiderID); err == nil {
		for _, id := range ids {
			favoriteSet[id] = true
		}
	} else {
		s.logger.Warn("favorite lookup failed, ranking without kin preference",
			"ride_id", ride.ID, "error", err)
	}

	distRank := s.distanceRank(ctx, ride)

	var favorites, near, far []*domain.DriverProfile
	for _, c := range candidates {
		switch {
		case favoriteSet[c.UserID]:
			favorites = append(favorites, c)
		case distRank != nil:
			if _, ok := distRank[c.UserID]; ok {
				near = append(near, c)
			} else {
				far = append(far, c)
			}
		default:
			far = append(far, c)
		}
	}

	if distRank != nil {
		sortByRank(near, distRank)
	}

	ranked := make([]*domain.DriverProfile, 0, len(candidates))
	ranked = append(ranked, favorites...)
	ranked = append(ranked, near...)
	ranked = append(ranked, far...)
	return ranked
}

// distanceRank returns driverID -> proximity order around the pickup, or nil
// when the pickup never geocoded or the geo index is unavailable.
func (s *KinFirstStrategy) distanceRank(ctx context.Context, ride *domain.Ride) map[string]int {
	if ride.PickupLat == 0 && ride.PickupLng == 0 {
		return nil
	}
	locations, err := s.locations.FindNearbyDrivers(ctx, ride.PickupLat, ride.PickupLng, geoSearchRadiusKm)
	if err != nil {
		s.logger.Warn("geo lookup failed, ranking without proximity", "ride_id", ride.ID, "error", err)
		return nil
	}
	rank := make(map[string]int, len(locations))
	for i, loc := range locations {
		rank[loc.DriverID] = i
	}
	return rank
}

func sortByRank(profiles []*domain.DriverProfile, rank map[string]int) {
	// Insertion sort: batches are small and already mostly ordered.
	for i := 1; i < len(profiles); i++ {
		for j := i; j > 0 && rank[profiles[j].UserID] < rank[profiles[j-1].UserID]; j-- {
			profiles[j], profiles[j-1] = profiles[j-1], profiles[j]
		}
	}
}
