package service

import (
	"context"
	"fmt"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/events"
	"github.com/shopspring/decimal"
)

// NewLedgerStore creates a LedgerStore from a DBTX (pool or tx).
type NewLedgerStore func(db database.DBTX) LedgerStore

// TopUpResult is the outcome of a successful top-up.
type TopUpResult struct {
	NewBalance  decimal.Decimal
	Transaction database.BalanceTransaction
}

// BalanceService exposes the user-facing side of the ledger.
type BalanceService struct {
	pool      TxBeginner
	newStore  NewLedgerStore
	publisher events.Publisher
}

// NewBalanceService creates a new BalanceService. publisher may be nil.
func NewBalanceService(pool TxBeginner, newStore NewLedgerStore, publisher events.Publisher) *BalanceService {
	return &BalanceService{pool: pool, newStore: newStore, publisher: orNop(publisher)}
}

// TopUp credits amount to the user's balance.
func (s *BalanceService) TopUp(ctx context.Context, userID int32, amount decimal.Decimal) (*TopUpResult, error) {
	if err := ValidateTopUp(amount); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	newBalance, entry, err := credit(ctx, s.newStore(tx), userID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	ev := events.New(enum.EventBalanceToppedUp)
	ev.UserID = userID
	ev.Amount = amount.StringFixed(2)
	ev.Balance = newBalance.StringFixed(2)
	publish(ctx, s.publisher, ev)

	return &TopUpResult{NewBalance: newBalance, Transaction: entry}, nil
}
