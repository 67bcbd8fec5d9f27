package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// debitScript atomically debits up to the requested amount and returns how
// much was actually taken, so wallet-first charging never overdraws under
// concurrent settlements.
var debitScript = redis.NewScript(`
local key = KEYS[1]
local want = tonumber(ARGV[1])
local balance = tonumber(redis.call('GET', key) or '0')
local take = math.min(balance, want)
if take > 0 then
	redis.call('INCRBYFLOAT', key, -take)
end
return tostring(take)
`)

// WalletStore holds rider wallet balances used by the wallet-first charge
// flow. Balances are topped up by an out-of-scope billing surface.
type WalletStore struct {
	client *redis.Client
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(client *redis.Client) *WalletStore {
	return &WalletStore{client: client}
}

func walletKey(riderID string) string {
	return fmt.Sprintf("wallet:%s", riderID)
}

// Balance returns the rider's current wallet balance.
func (s *WalletStore) Balance(ctx context.Context, riderID string) (float64, error) {
	val, err := s.client.Get(ctx, walletKey(riderID)).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Debit takes up to amount from the wallet and returns the portion actually
// debited.
func (s *WalletStore) Debit(ctx context.Context, riderID string, amount float64) (float64, error) {
	res, err := debitScript.Run(ctx, s.client, []string{walletKey(riderID)}, amount).Text()
	if err != nil {
		return 0, err
	}
	var taken float64
	if _, err := fmt.Sscanf(res, "%f", &taken); err != nil {
		return 0, err
	}
	return taken, nil
}

// Credit adds funds back, used when a card charge fails after a wallet debit.
func (s *WalletStore) Credit(ctx context.Context, riderID string, amount float64) error {
	return s.client.IncrByFloat(ctx, walletKey(riderID), amount).Err()
}
