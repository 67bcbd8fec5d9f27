package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. The
// conditional updates hold the mutex across check-and-write, matching the
// atomicity the SQL layer gets from single UPDATE statements.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Stranded lists ride IDs that ListOfferedWithoutPending should report;
	// the mock has no view into the offer table.
	Stranded []string

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32
	AssignDriverCallCount int32

	// Error injection
	CreateError  error
	GetByIDError error
	UpdateError  error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.Ride)}
}

// AddRide seeds a ride into the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	return &cp, nil
}

func (m *MockRideRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RideStatus) (bool, error) {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != from {
		return false, nil
	}
	ride.Status = to
	ride.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockRideRepository) MarkOffered(ctx context.Context, id string) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != domain.RideStatusRequested {
		return false, nil
	}
	ride.Status = domain.RideStatusOffered
	ride.MatchRounds++
	return true, nil
}

func (m *MockRideRepository) AssignDriver(ctx context.Context, id, driverID string) (bool, error) {
	atomic.AddInt32(&m.AssignDriverCallCount, 1)
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != domain.RideStatusOffered {
		return false, nil
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	return true, nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, id string, from domain.RideStatus, reason string) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != from {
		return false, nil
	}
	ride.Status = domain.RideStatusCanceled
	ride.CancelReason = reason
	return true, nil
}

func (m *MockRideRepository) RevertToRequested(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != domain.RideStatusOffered {
		return false, nil
	}
	ride.Status = domain.RideStatusRequested
	return true, nil
}

func (m *MockRideRepository) SetPlatformFee(ctx context.Context, id string, fee float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.PlatformFee != nil {
		return false, nil
	}
	ride.PlatformFee = &fee
	return true, nil
}

func (m *MockRideRepository) HasActiveByDriver(ctx context.Context, driverID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.DriverID != driverID {
			continue
		}
		switch r.Status {
		case domain.RideStatusAccepted, domain.RideStatusArriving, domain.RideStatusInProgress:
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRideRepository) ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.Ride
	for _, r := range m.rides {
		if r.Status == domain.RideStatusRequested && r.ScheduledAt != nil && !r.ScheduledAt.After(now) {
			cp := *r
			due = append(due, &cp)
			if len(due) >= limit {
				break
			}
		}
	}
	return due, nil
}

func (m *MockRideRepository) ListOfferedWithoutPending(ctx context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, id := range m.Stranded {
		if r, ok := m.rides[id]; ok && r.Status == domain.RideStatusOffered {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (m *MockRideRepository) ListStalledRequested(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, r := range m.rides {
		if r.Status == domain.RideStatusRequested && r.ScheduledAt == nil && r.CreatedAt.Before(olderThan) {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

// ──────────────────────────────────────────────
// MOCK OFFER REPOSITORY
// ──────────────────────────────────────────────

// MockOfferRepository is a mock implementation of OfferRepository. Claim is
// a real compare-and-swap under the mutex, so race tests exercise the same
// single-winner semantics as the guarded SQL UPDATE. Offers are stored as
// rows: a (ride, driver) pair may accumulate resolved offers across rounds,
// and Create enforces the partial unique index on PENDING pairs.
type MockOfferRepository struct {
	mu     sync.RWMutex
	offers []*domain.Offer

	ClaimCallCount int32

	CreateError error
	ClaimError  error
}

// NewMockOfferRepository creates a new mock offer repository.
func NewMockOfferRepository() *MockOfferRepository {
	return &MockOfferRepository{}
}

// AddOffer seeds an offer into the mock repository.
func (m *MockOfferRepository) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers = append(m.offers, offer)
}

// latestFor returns the most recently inserted offer for the pair.
// Callers hold the mutex.
func (m *MockOfferRepository) latestFor(rideID, driverID string) *domain.Offer {
	for i := len(m.offers) - 1; i >= 0; i-- {
		if m.offers[i].RideID == rideID && m.offers[i].DriverID == driverID {
			return m.offers[i]
		}
	}
	return nil
}

// GetOffer returns the latest stored offer for the pair, for test assertions.
func (m *MockOfferRepository) GetOffer(rideID, driverID string) *domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestFor(rideID, driverID)
}

// CountOffers returns how many offer rows exist for the pair.
func (m *MockOfferRepository) CountOffers(rideID, driverID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, o := range m.offers {
		if o.RideID == rideID && o.DriverID == driverID {
			n++
		}
	}
	return n
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.RideID == offer.RideID && o.DriverID == offer.DriverID && o.Status == domain.OfferStatusPending {
			return repository.ErrDuplicate
		}
	}
	cp := *offer
	m.offers = append(m.offers, &cp)
	return nil
}

func (m *MockOfferRepository) GetByRideAndDriver(ctx context.Context, rideID, driverID string) (*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer := m.latestFor(rideID, driverID)
	if offer == nil {
		return nil, repository.ErrNotFound
	}
	cp := *offer
	return &cp, nil
}

func (m *MockOfferRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Offer
	for _, o := range m.offers {
		if o.RideID == rideID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOfferRepository) ListPendingByDriver(ctx context.Context, driverID string, now time.Time) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Offer
	for _, o := range m.offers {
		if o.DriverID == driverID && o.Status == domain.OfferStatusPending && !o.IsExpired(now) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOfferRepository) CountPendingByDriver(ctx context.Context, driverID string, now time.Time) (int, error) {
	offers, _ := m.ListPendingByDriver(ctx, driverID, now)
	return len(offers), nil
}

func (m *MockOfferRepository) Claim(ctx context.Context, rideID, driverID string, now time.Time) (bool, error) {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	if m.ClaimError != nil {
		return false, m.ClaimError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	offer := m.latestFor(rideID, driverID)
	if offer == nil || offer.Status != domain.OfferStatusPending || offer.IsExpired(now) {
		return false, nil
	}
	offer.Status = domain.OfferStatusAccepted
	offer.RespondedAt = &now
	return true, nil
}

func (m *MockOfferRepository) Decline(ctx context.Context, rideID, driverID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offer := m.latestFor(rideID, driverID)
	if offer == nil || offer.Status != domain.OfferStatusPending || offer.IsExpired(now) {
		return false, nil
	}
	offer.Status = domain.OfferStatusDeclined
	offer.RespondedAt = &now
	return true, nil
}

func (m *MockOfferRepository) ExpireSiblings(ctx context.Context, rideID, winnerDriverID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.offers {
		if o.RideID == rideID && o.DriverID != winnerDriverID && o.Status == domain.OfferStatusPending {
			o.Status = domain.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockOfferRepository) ExpirePendingByRide(ctx context.Context, rideID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.offers {
		if o.RideID == rideID && o.Status == domain.OfferStatusPending {
			o.Status = domain.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockOfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.offers {
		if o.Status == domain.OfferStatusPending && o.IsExpired(now) {
			o.Status = domain.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.DriverProfile

	CreateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.DriverProfile)}
}

// AddDriver seeds a driver profile into the mock repository.
func (m *MockDriverRepository) AddDriver(profile *domain.DriverProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[profile.UserID] = profile
}

// GetDriver returns the stored profile for test assertions.
func (m *MockDriverRepository) GetDriver(userID string) *domain.DriverProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[userID]
}

func (m *MockDriverRepository) Create(ctx context.Context, profile *domain.DriverProfile) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.drivers[profile.UserID]; exists {
		return repository.ErrDuplicate
	}
	cp := *profile
	m.drivers[profile.UserID] = &cp
	return nil
}

func (m *MockDriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.drivers[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

func (m *MockDriverRepository) ListEligible(ctx context.Context, limit int) ([]*domain.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DriverProfile
	for _, d := range m.drivers {
		if d.IsOnline && d.IsVerified && d.VerificationRevokedAt == nil {
			cp := *d
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockDriverRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[userID]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsOnline = online
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[userID]
	if !ok {
		return repository.ErrNotFound
	}
	d.LastKnownLat = &lat
	d.LastKnownLng = &lng
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository. The
// unique ride_id constraint is enforced under the mutex so duplicate
// settlement tests behave like the real table.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.RidePayment // key: rideID

	CreateCallCount int32
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.RidePayment)}
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(rideID string) *domain.RidePayment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[rideID]
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.RidePayment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[payment.RideID]; exists {
		return repository.ErrDuplicate
	}
	cp := *payment
	m.payments[payment.RideID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.RidePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *payment
	return &cp, nil
}

func (m *MockPaymentRepository) UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, walletUsed, cardCharged float64, providerChargeID *string, failureReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			p.Status = status
			p.WalletAmountUsed = walletUsed
			p.CardAmountCharged = cardCharged
			p.ProviderChargeID = providerChargeID
			p.FailureReason = failureReason
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK LOYALTY REPOSITORY
// ──────────────────────────────────────────────

// MockLoyaltyRepository is a mock implementation of LoyaltyRepository.
type MockLoyaltyRepository struct {
	mu           sync.RWMutex
	balances     map[string]*domain.RiderLoyalty
	Transactions []*domain.LoyaltyTransaction
}

// NewMockLoyaltyRepository creates a new mock loyalty repository.
func NewMockLoyaltyRepository() *MockLoyaltyRepository {
	return &MockLoyaltyRepository{balances: make(map[string]*domain.RiderLoyalty)}
}

// AddLoyalty seeds a loyalty record into the mock repository.
func (m *MockLoyaltyRepository) AddLoyalty(loyalty *domain.RiderLoyalty) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[loyalty.RiderID] = loyalty
}

// GetLoyalty returns the stored record for test assertions.
func (m *MockLoyaltyRepository) GetLoyalty(riderID string) *domain.RiderLoyalty {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[riderID]
}

func (m *MockLoyaltyRepository) GetByRiderID(ctx context.Context, riderID string) (*domain.RiderLoyalty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loyalty, ok := m.balances[riderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *loyalty
	return &cp, nil
}

func (m *MockLoyaltyRepository) Upsert(ctx context.Context, loyalty *domain.RiderLoyalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *loyalty
	m.balances[loyalty.RiderID] = &cp
	return nil
}

func (m *MockLoyaltyRepository) AppendTransaction(ctx context.Context, txn *domain.LoyaltyTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *txn
	m.Transactions = append(m.Transactions, &cp)
	return nil
}

// ──────────────────────────────────────────────
// MOCK FAVORITE REPOSITORY
// ──────────────────────────────────────────────

// MockFavoriteRepository is a mock implementation of FavoriteRepository.
type MockFavoriteRepository struct {
	mu        sync.RWMutex
	favorites map[string][]string // riderID -> driverIDs

	ListError error
}

// NewMockFavoriteRepository creates a new mock favorite repository.
func NewMockFavoriteRepository() *MockFavoriteRepository {
	return &MockFavoriteRepository{favorites: make(map[string][]string)}
}

// AddFavorite records a rider→driver relation.
func (m *MockFavoriteRepository) AddFavorite(riderID, driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[riderID] = append(m.favorites[riderID], driverID)
}

func (m *MockFavoriteRepository) ListDriverIDs(ctx context.Context, riderID string) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.favorites[riderID]...), nil
}

func (m *MockFavoriteRepository) Exists(ctx context.Context, riderID, driverID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.favorites[riderID] {
		if id == driverID {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────
// MOCK TX MANAGER
// ──────────────────────────────────────────────

// MockTxManager runs the callback against the supplied mocks directly. It
// cannot roll back, so tests asserting rollback behavior check the
// conditional-write short circuits instead.
type MockTxManager struct {
	Repos repository.Repos

	WithinTxCallCount int32
	BeginError        error
}

// NewMockTxManager creates a TxManager backed by the given mocks.
func NewMockTxManager(rides repository.RideRepository, offers repository.OfferRepository, drivers repository.DriverRepository, payments repository.PaymentRepository, loyalty repository.LoyaltyRepository) *MockTxManager {
	return &MockTxManager{Repos: repository.Repos{
		Rides:    rides,
		Offers:   offers,
		Drivers:  drivers,
		Payments: payments,
		Loyalty:  loyalty,
	}}
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	if m.BeginError != nil {
		return m.BeginError
	}
	return fn(m.Repos)
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string][2]float64
	Nearby    []redis.DriverLocation

	FindError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string][2]float64)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = [2]float64{lat, lng}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	return m.Nearby, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation reports whether the driver is in the index.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// MockLockStore is an in-memory LockStoreInterface with SetNX semantics.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireMatchLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[rideID] {
		return false, nil
	}
	m.locks[rideID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseMatchLock(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, rideID)
	return nil
}

// MockWalletStore is an in-memory WalletStoreInterface with the same
// debit-up-to semantics as the Lua script.
type MockWalletStore struct {
	mu       sync.Mutex
	balances map[string]float64
}

// NewMockWalletStore creates a new mock wallet store.
func NewMockWalletStore() *MockWalletStore {
	return &MockWalletStore{balances: make(map[string]float64)}
}

// SetBalance seeds a rider's wallet.
func (m *MockWalletStore) SetBalance(riderID string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[riderID] = amount
}

func (m *MockWalletStore) Balance(ctx context.Context, riderID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[riderID], nil
}

func (m *MockWalletStore) Debit(ctx context.Context, riderID string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := m.balances[riderID]
	take := amount
	if balance < take {
		take = balance
	}
	m.balances[riderID] = balance - take
	return take, nil
}

func (m *MockWalletStore) Credit(ctx context.Context, riderID string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[riderID] += amount
	return nil
}

// ──────────────────────────────────────────────
// MOCK OUTBOUND COLLABORATORS
// ──────────────────────────────────────────────

// MockGeocoder resolves addresses from a fixed table.
type MockGeocoder struct {
	Coords map[string][2]float64 // address -> lat, lng
	Err    error
}

// NewMockGeocoder creates a geocoder with the given address table.
func NewMockGeocoder(coords map[string][2]float64) *MockGeocoder {
	return &MockGeocoder{Coords: coords}
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	if m.Err != nil {
		return 0, 0, false, m.Err
	}
	c, ok := m.Coords[address]
	if !ok {
		return 0, 0, false, nil
	}
	return c[0], c[1], true, nil
}

// MockCharger is a Charger with scriptable outcomes.
type MockCharger struct {
	Result service.ChargeResult
	Err    error

	ChargeCallCount int32
	LastAmount      float64
}

func (m *MockCharger) ChargeRide(ctx context.Context, riderID string, amount float64) (service.ChargeResult, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.LastAmount = amount
	if m.Err != nil {
		return service.ChargeResult{}, m.Err
	}
	return m.Result, nil
}

// MockCardGateway is a CardGateway with scriptable outcomes.
type MockCardGateway struct {
	ChargeID string
	Err      error

	ChargeCallCount int32
	LastAmountCents int64
}

func (m *MockCardGateway) ChargeCard(ctx context.Context, amountCents int64, currency, customerID string) (string, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.LastAmountCents = amountCents
	if m.Err != nil {
		return "", m.Err
	}
	if m.ChargeID == "" {
		return "pi_test", nil
	}
	return m.ChargeID, nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []PublishedMessage
	Err      error
}

// PublishedMessage is one captured publish call.
type PublishedMessage struct {
	Key     string
	Payload []byte
}

func (m *MockPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, PublishedMessage{Key: key, Payload: payload})
	return nil
}

// Count returns how many events were published.
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}
