package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. The matcher uses it to
// keep overlapping sweeps from running a matching round for the same ride
// at the same time; correctness still rests on the status-guarded writes.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireMatchLock attempts to acquire the matching lock for a ride.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireMatchLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:match:%s", rideID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseMatchLock releases the matching lock for a ride.
func (s *LockStore) ReleaseMatchLock(ctx context.Context, rideID string) error {
	key := fmt.Sprintf("lock:match:%s", rideID)

	return s.client.Del(ctx, key).Err()
}
