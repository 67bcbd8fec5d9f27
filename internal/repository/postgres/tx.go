package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dispatch/internal/repository"
)

// TxManager implements repository.TxManager on top of database/sql.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn with transaction-scoped repositories. Any error from fn
// rolls the transaction back; otherwise it commits.
func (m *TxManager) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	repos := repository.Repos{
		Rides:    NewRideRepositoryWithTx(tx),
		Offers:   NewOfferRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
		Payments: NewPaymentRepositoryWithTx(tx),
		Loyalty:  NewLoyaltyRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

var _ repository.TxManager = (*TxManager)(nil)
