package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/observability"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ChargeResult is the outcome of one charge attempt against the rider.
type ChargeResult struct {
	Success          bool
	WalletUsed       float64
	CardCharged      float64
	ProviderChargeID *string
	FailureReason    string
}

// Charger collects the rider's money for a settled amount. Implementations
// must be safe to retry: a failed attempt leaves the rider uncharged.
type Charger interface {
	ChargeRide(ctx context.Context, riderID string, amount float64) (ChargeResult, error)
}

// CardGateway is the card leg of a charge (see payments.StripeGateway).
type CardGateway interface {
	ChargeCard(ctx context.Context, amountCents int64, currency, customerID string) (string, error)
}

// errPaymentExists signals that another settlement already created the
// payment row; the surrounding transaction rolls back its fee and loyalty
// writes.
var errPaymentExists = errors.New("payment row exists")

// SettlementService finalizes a completed ride: it records the platform fee,
// credits rider loyalty and collects payment. The fee and loyalty writes plus
// the PENDING payment row commit in one transaction keyed on the unique
// ride_id, which makes the whole settlement idempotent; the external charge
// happens after that commit and is retryable on its own.
type SettlementService struct {
	txm         repository.TxManager
	rideRepo    repository.RideRepository
	paymentRepo repository.PaymentRepository
	loyaltyRepo repository.LoyaltyRepository
	favorites   repository.FavoriteRepository
	charger     Charger
	logger      *slog.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	txm repository.TxManager,
	rideRepo repository.RideRepository,
	paymentRepo repository.PaymentRepository,
	loyaltyRepo repository.LoyaltyRepository,
	favorites repository.FavoriteRepository,
	charger Charger,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		txm:         txm,
		rideRepo:    rideRepo,
		paymentRepo: paymentRepo,
		loyaltyRepo: loyaltyRepo,
		favorites:   favorites,
		charger:     charger,
		logger:      logger,
	}
}

// Settle runs the post-completion settlement for a ride. Calling it twice for
// the same ride is safe: the second call finds the existing payment row and
// either returns it (already succeeded) or retries only the charge.
func (s *SettlementService) Settle(ctx context.Context, ride *domain.Ride) (*domain.RidePayment, error) {
	amount := 0.0
	if ride.EstimatedFare != nil {
		amount = *ride.EstimatedFare
	}

	now := time.Now()

	payment := &domain.RidePayment{
		ID:          uuid.New().String(),
		RideID:      ride.ID,
		AmountTotal: amount,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txm.WithinTx(ctx, func(r repository.Repos) error {
		if err := r.Payments.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errPaymentExists
			}
			return err
		}
		// Fee may already be set from an earlier partial settlement; the
		// guarded write keeps it first-wins.
		fee := s.platformFee(ctx, r.Drivers, ride, amount)
		if _, err := r.Rides.SetPlatformFee(ctx, ride.ID, fee); err != nil {
			return err
		}
		return s.creditLoyalty(ctx, r.Loyalty, ride.RiderID, now)
	})
	if errors.Is(err, errPaymentExists) {
		existing, getErr := s.paymentRepo.GetByRideID(ctx, ride.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status == domain.PaymentStatusSucceeded {
			return existing, nil
		}
		payment = existing
	} else if err != nil {
		return nil, err
	}

	return s.charge(ctx, ride, payment)
}

// RetryCharge re-attempts the charge for a completed ride whose payment did
// not succeed. Fee and loyalty are never recomputed here.
func (s *SettlementService) RetryCharge(ctx context.Context, rideID string) (*domain.RidePayment, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrRideNotCompleted
	}

	payment, err := s.paymentRepo.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentStatusSucceeded {
		return nil, ErrPaymentAlreadySettled
	}

	return s.charge(ctx, ride, payment)
}

// charge runs the external charge and records its result on the payment row.
func (s *SettlementService) charge(ctx context.Context, ride *domain.Ride, payment *domain.RidePayment) (*domain.RidePayment, error) {
	if payment.AmountTotal <= 0 {
		if err := s.paymentRepo.UpdateResult(ctx, payment.ID, domain.PaymentStatusSucceeded, 0, 0, nil, ""); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentStatusSucceeded
		observability.SettlementsTotal.WithLabelValues("succeeded").Inc()
		return payment, nil
	}

	result, err := s.charger.ChargeRide(ctx, ride.RiderID, payment.AmountTotal)
	if err != nil {
		observability.SettlementsTotal.WithLabelValues("errored").Inc()
		if uErr := s.paymentRepo.UpdateResult(ctx, payment.ID, domain.PaymentStatusFailed, 0, 0, nil, err.Error()); uErr != nil {
			s.logger.Error("failed to record charge error", "ride_id", ride.ID, "error", uErr)
		}
		payment.Status = domain.PaymentStatusFailed
		payment.FailureReason = err.Error()
		return payment, err
	}

	status := domain.PaymentStatusSucceeded
	if !result.Success {
		status = domain.PaymentStatusFailed
	}
	if err := s.paymentRepo.UpdateResult(ctx, payment.ID, status,
		result.WalletUsed, result.CardCharged, result.ProviderChargeID, result.FailureReason); err != nil {
		return nil, err
	}

	payment.Status = status
	payment.WalletAmountUsed = result.WalletUsed
	payment.CardAmountCharged = result.CardCharged
	payment.ProviderChargeID = result.ProviderChargeID
	payment.FailureReason = result.FailureReason

	if !result.Success {
		observability.SettlementsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("ride charge failed", "ride_id", ride.ID, "reason", result.FailureReason)
		return payment, ErrChargeFailed
	}

	observability.SettlementsTotal.WithLabelValues("succeeded").Inc()
	s.logger.Info("ride settled", "ride_id", ride.ID,
		"amount", payment.AmountTotal, "wallet", result.WalletUsed, "card", result.CardCharged)
	return payment, nil
}

// platformFee computes the commission for the ride. A ride stored as kin, or
// one whose driver the rider has since favorited, gets the kin rate.
func (s *SettlementService) platformFee(ctx context.Context, drivers repository.DriverRepository, ride *domain.Ride, amount float64) float64 {
	if amount <= 0 {
		return 0
	}

	plan := domain.DriverPlanFree
	if profile, err := drivers.GetByUserID(ctx, ride.DriverID); err == nil {
		plan = profile.Plan
	} else {
		s.logger.Warn("driver lookup failed at settlement, assuming FREE plan",
			"ride_id", ride.ID, "driver_id", ride.DriverID, "error", err)
	}

	kin := ride.IsKinRide
	if !kin {
		if fav, err := s.favorites.Exists(ctx, ride.RiderID, ride.DriverID); err == nil {
			kin = fav
		}
	}

	return ComputeCommission(amount, kin, plan).Fee
}

// creditLoyalty awards completion credits and advances the weekly streak,
// writing both the balance and a ledger entry.
func (s *SettlementService) creditLoyalty(ctx context.Context, repo repository.LoyaltyRepository, riderID string, now time.Time) error {
	loyalty, err := repo.GetByRiderID(ctx, riderID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		loyalty = &domain.RiderLoyalty{RiderID: riderID}
	}

	credits := ComputeLoyaltyCredits(loyalty.StreakWeeks)
	loyalty.StreakWeeks = AdvanceStreak(loyalty.LastRideAt, now, loyalty.StreakWeeks)
	loyalty.Credits += credits.Total
	loyalty.LifetimeRides++
	loyalty.LastRideAt = now

	if err := repo.Upsert(ctx, loyalty); err != nil {
		return err
	}
	return repo.AppendTransaction(ctx, &domain.LoyaltyTransaction{
		ID:        uuid.New().String(),
		RiderID:   riderID,
		Amount:    credits.Total,
		Reason:    domain.LoyaltyReasonRideCompleted,
		CreatedAt: now,
	})
}

// WalletFirstCharger drains the rider's wallet before charging the remainder
// to the card, refunding the wallet portion when the card leg fails.
type WalletFirstCharger struct {
	wallet   redis.WalletStoreInterface
	cards    CardGateway
	currency string
	logger   *slog.Logger
}

// NewWalletFirstCharger creates the production charger.
func NewWalletFirstCharger(wallet redis.WalletStoreInterface, cards CardGateway, currency string, logger *slog.Logger) *WalletFirstCharger {
	if currency == "" {
		currency = "usd"
	}
	return &WalletFirstCharger{wallet: wallet, cards: cards, currency: currency, logger: logger}
}

// ChargeRide implements Charger.
func (c *WalletFirstCharger) ChargeRide(ctx context.Context, riderID string, amount float64) (ChargeResult, error) {
	walletUsed, err := c.wallet.Debit(ctx, riderID, amount)
	if err != nil {
		return ChargeResult{}, err
	}

	remainder := math.Round((amount-walletUsed)*100) / 100
	if remainder <= 0 {
		return ChargeResult{Success: true, WalletUsed: walletUsed}, nil
	}

	chargeID, err := c.cards.ChargeCard(ctx, int64(math.Round(remainder*100)), c.currency, riderID)
	if err != nil {
		if walletUsed > 0 {
			if refundErr := c.wallet.Credit(ctx, riderID, walletUsed); refundErr != nil {
				c.logger.Error("wallet refund failed after card decline",
					"rider_id", riderID, "amount", walletUsed, "error", refundErr)
			}
		}
		return ChargeResult{FailureReason: err.Error()}, nil
	}

	return ChargeResult{
		Success:          true,
		WalletUsed:       walletUsed,
		CardCharged:      remainder,
		ProviderChargeID: &chargeID,
	}, nil
}
