package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, ride_id, amount_total, wallet_amount_used,
	card_amount_charged, provider_charge_id, status, failure_reason,
	created_at, updated_at`

// Create persists a new payment. The unique index on ride_id is the
// settlement idempotency guard; a second insert surfaces as ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.RidePayment) error {
	query := `
		INSERT INTO ride_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RideID,
		payment.AmountTotal,
		payment.WalletAmountUsed,
		payment.CardAmountCharged,
		nullStringPtr(payment.ProviderChargeID),
		payment.Status,
		nullString(payment.FailureReason),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByRideID retrieves the payment for a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.RidePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM ride_payments WHERE ride_id = $1`

	var payment domain.RidePayment
	var providerChargeID, failureReason sql.NullString

	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&payment.ID,
		&payment.RideID,
		&payment.AmountTotal,
		&payment.WalletAmountUsed,
		&payment.CardAmountCharged,
		&providerChargeID,
		&payment.Status,
		&failureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if providerChargeID.Valid {
		payment.ProviderChargeID = &providerChargeID.String
	}
	if failureReason.Valid {
		payment.FailureReason = failureReason.String
	}
	return &payment, nil
}

// UpdateResult records the outcome of a charge attempt.
func (r *PaymentRepository) UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, walletUsed, cardCharged float64, providerChargeID *string, failureReason string) error {
	query := `
		UPDATE ride_payments
		SET status = $1, wallet_amount_used = $2, card_amount_charged = $3,
		    provider_charge_id = $4, failure_reason = $5, updated_at = now()
		WHERE id = $6
	`
	res, err := r.q.ExecContext(ctx, query,
		status, walletUsed, cardCharged, nullStringPtr(providerChargeID), nullString(failureReason), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
