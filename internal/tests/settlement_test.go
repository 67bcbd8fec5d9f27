package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

type settlementFixture struct {
	rideRepo    *MockRideRepository
	paymentRepo *MockPaymentRepository
	loyaltyRepo *MockLoyaltyRepository
	driverRepo  *MockDriverRepository
	favRepo     *MockFavoriteRepository
	charger     *MockCharger
	settlement  *service.SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		rideRepo:    NewMockRideRepository(),
		paymentRepo: NewMockPaymentRepository(),
		loyaltyRepo: NewMockLoyaltyRepository(),
		driverRepo:  NewMockDriverRepository(),
		favRepo:     NewMockFavoriteRepository(),
		charger:     &MockCharger{Result: service.ChargeResult{Success: true}},
	}
	txm := NewMockTxManager(f.rideRepo, NewMockOfferRepository(), f.driverRepo, f.paymentRepo, f.loyaltyRepo)
	f.settlement = service.NewSettlementService(
		txm, f.rideRepo, f.paymentRepo, f.loyaltyRepo, f.favRepo, f.charger, testLogger())
	return f
}

func completedRide(id string, fare float64) *domain.Ride {
	return &domain.Ride{
		ID: id, RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusCompleted, EstimatedFare: &fare,
	}
}

func TestSettle_RecordsFeeLoyaltyAndPayment(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 20.00)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1")) // FREE plan

	payment, err := f.settlement.Settle(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", payment.Status)
	}
	if payment.AmountTotal != 20.00 {
		t.Errorf("expected amount 20.00, got %.2f", payment.AmountTotal)
	}

	// standard/FREE commission is 15%.
	fee := f.rideRepo.GetRide("ride-1").PlatformFee
	if fee == nil || *fee != 3.00 {
		t.Errorf("expected platform fee 3.00, got %v", fee)
	}

	loyalty := f.loyaltyRepo.GetLoyalty("rider-1")
	if loyalty == nil {
		t.Fatal("expected a loyalty record")
	}
	if loyalty.Credits != 10 || loyalty.StreakWeeks != 1 || loyalty.LifetimeRides != 1 {
		t.Errorf("unexpected loyalty state: %+v", loyalty)
	}
	if len(f.loyaltyRepo.Transactions) != 1 || f.loyaltyRepo.Transactions[0].Amount != 10 {
		t.Error("expected one ledger entry for 10 credits")
	}
}

func TestSettle_IsIdempotent(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 20.00)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))

	first, err := f.settlement.Settle(context.Background(), ride)
	if err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	second, err := f.settlement.Settle(context.Background(), ride)
	if err != nil {
		t.Fatalf("second settle failed: %v", err)
	}

	if first.ID != second.ID {
		t.Error("second settle must return the same payment row")
	}
	if f.charger.ChargeCallCount != 1 {
		t.Errorf("rider must be charged once, got %d charges", f.charger.ChargeCallCount)
	}
	if got := f.loyaltyRepo.GetLoyalty("rider-1").Credits; got != 10 {
		t.Errorf("loyalty must be credited once, got %d", got)
	}
	if len(f.loyaltyRepo.Transactions) != 1 {
		t.Errorf("expected one ledger entry, got %d", len(f.loyaltyRepo.Transactions))
	}
}

func TestSettle_KinProRideHasZeroFee(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 30.00)
	ride.IsKinRide = true
	f.rideRepo.AddRide(ride)
	pro := onlineDriver("d1")
	pro.Plan = domain.DriverPlanPro
	f.driverRepo.AddDriver(pro)

	if _, err := f.settlement.Settle(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fee := f.rideRepo.GetRide("ride-1").PlatformFee
	if fee == nil || *fee != 0 {
		t.Errorf("kin/PRO ride must have zero fee, got %v", fee)
	}
}

func TestSettle_LiveFavoriteGetsKinRate(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 10.00) // stored flag is false
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))
	f.favRepo.AddFavorite("rider-1", "d1")

	if _, err := f.settlement.Settle(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// kin/FREE commission is 8%.
	fee := f.rideRepo.GetRide("ride-1").PlatformFee
	if fee == nil || *fee != 0.80 {
		t.Errorf("expected kin rate fee 0.80, got %v", fee)
	}
}

func TestSettle_NilFareSettlesAtZeroWithoutCharge(t *testing.T) {
	f := newSettlementFixture()
	ride := &domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "d1",
		Status: domain.RideStatusCompleted, // EstimatedFare nil
	}
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))

	payment, err := f.settlement.Settle(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusSucceeded || payment.AmountTotal != 0 {
		t.Errorf("expected zero-amount SUCCEEDED payment, got %+v", payment)
	}
	if f.charger.ChargeCallCount != 0 {
		t.Error("no charge call expected for a zero amount")
	}
	// Loyalty is still credited even without a fare.
	if got := f.loyaltyRepo.GetLoyalty("rider-1"); got == nil || got.Credits != 10 {
		t.Error("expected loyalty credit for a fareless ride")
	}
}

func TestSettle_StreakBonusFromPriorStreak(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 10.00)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))
	f.loyaltyRepo.AddLoyalty(&domain.RiderLoyalty{
		RiderID: "rider-1", Credits: 40, StreakWeeks: 2,
		LifetimeRides: 7, LastRideAt: time.Now().AddDate(0, 0, -7),
	})

	if _, err := f.settlement.Settle(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loyalty := f.loyaltyRepo.GetLoyalty("rider-1")
	if loyalty.Credits != 55 { // 40 + 10 base + 5 bonus
		t.Errorf("expected 55 credits, got %d", loyalty.Credits)
	}
	if loyalty.StreakWeeks != 3 {
		t.Errorf("expected streak extended to 3, got %d", loyalty.StreakWeeks)
	}
	if loyalty.LifetimeRides != 8 {
		t.Errorf("expected 8 lifetime rides, got %d", loyalty.LifetimeRides)
	}
}

func TestSettle_ChargeFailureLeavesRetryableRow(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 25.00)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))
	f.charger.Result = service.ChargeResult{Success: false, FailureReason: "insufficient funds"}

	payment, err := f.settlement.Settle(context.Background(), ride)
	if !errors.Is(err, service.ErrChargeFailed) {
		t.Fatalf("expected ErrChargeFailed, got %v", err)
	}
	if payment.Status != domain.PaymentStatusFailed {
		t.Errorf("expected FAILED payment, got %s", payment.Status)
	}

	// Retry succeeds and flips the same row.
	f.charger.Result = service.ChargeResult{Success: true, CardCharged: 25.00}
	retried, err := f.settlement.RetryCharge(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retried.ID != payment.ID || retried.Status != domain.PaymentStatusSucceeded {
		t.Errorf("expected same row SUCCEEDED, got %+v", retried)
	}

	// Loyalty was not double-credited by the retry.
	if got := f.loyaltyRepo.GetLoyalty("rider-1").Credits; got != 10 {
		t.Errorf("retry must not recompute loyalty, got %d credits", got)
	}
}

func TestRetryCharge_Guards(t *testing.T) {
	f := newSettlementFixture()
	ride := completedRide("ride-1", 25.00)
	f.rideRepo.AddRide(ride)
	f.driverRepo.AddDriver(onlineDriver("d1"))

	if _, err := f.settlement.Settle(context.Background(), ride); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	// Retrying a succeeded payment is a conflict.
	_, err := f.settlement.RetryCharge(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrPaymentAlreadySettled) {
		t.Fatalf("expected ErrPaymentAlreadySettled, got %v", err)
	}

	// Retrying a non-completed ride is rejected.
	f.rideRepo.AddRide(&domain.Ride{ID: "ride-2", RiderID: "r", Status: domain.RideStatusInProgress})
	_, err = f.settlement.RetryCharge(context.Background(), "ride-2")
	if !errors.Is(err, service.ErrRideNotCompleted) {
		t.Fatalf("expected ErrRideNotCompleted, got %v", err)
	}
}

func TestWalletFirstCharger_SplitsAcrossWalletAndCard(t *testing.T) {
	wallet := NewMockWalletStore()
	wallet.SetBalance("rider-1", 8.00)
	cards := &MockCardGateway{ChargeID: "pi_123"}
	charger := service.NewWalletFirstCharger(wallet, cards, "usd", testLogger())

	result, err := charger.ChargeRide(context.Background(), "rider-1", 20.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.WalletUsed != 8.00 || result.CardCharged != 12.00 {
		t.Errorf("unexpected split: %+v", result)
	}
	if cards.LastAmountCents != 1200 {
		t.Errorf("expected 1200 cents on card, got %d", cards.LastAmountCents)
	}
	if balance, _ := wallet.Balance(context.Background(), "rider-1"); balance != 0 {
		t.Errorf("wallet should be drained, got %.2f", balance)
	}
}

func TestWalletFirstCharger_WalletCoversFullAmount(t *testing.T) {
	wallet := NewMockWalletStore()
	wallet.SetBalance("rider-1", 50.00)
	cards := &MockCardGateway{}
	charger := service.NewWalletFirstCharger(wallet, cards, "usd", testLogger())

	result, err := charger.ChargeRide(context.Background(), "rider-1", 20.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.WalletUsed != 20.00 || result.CardCharged != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if cards.ChargeCallCount != 0 {
		t.Error("card must not be charged when the wallet covers the fare")
	}
}

func TestWalletFirstCharger_RefundsWalletOnCardDecline(t *testing.T) {
	wallet := NewMockWalletStore()
	wallet.SetBalance("rider-1", 5.00)
	cards := &MockCardGateway{Err: errors.New("card declined")}
	charger := service.NewWalletFirstCharger(wallet, cards, "usd", testLogger())

	result, err := charger.ChargeRide(context.Background(), "rider-1", 20.00)
	if err != nil {
		t.Fatalf("a declined card is a result, not an error: %v", err)
	}
	if result.Success {
		t.Error("expected failed charge")
	}
	if balance, _ := wallet.Balance(context.Background(), "rider-1"); balance != 5.00 {
		t.Errorf("wallet must be refunded after card decline, got %.2f", balance)
	}
}
