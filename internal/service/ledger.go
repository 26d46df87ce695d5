package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Top-up bounds, inclusive.
var (
	MinTopUp = decimal.RequireFromString("0.01")
	MaxTopUp = decimal.RequireFromString("500.00")
)

// LedgerStore defines the DB methods that read and mutate a user's balance.
// Always bound to the caller's transaction: a balance change commits or rolls
// back together with the reservation it belongs to.
type LedgerStore interface {
	GetUserBalanceForUpdate(ctx context.Context, id int32) (pgtype.Numeric, error)
	DebitUserBalance(ctx context.Context, arg database.DebitUserBalanceParams) (pgtype.Numeric, error)
	CreditUserBalance(ctx context.Context, arg database.CreditUserBalanceParams) (pgtype.Numeric, error)
	CreateBalanceTransaction(ctx context.Context, arg database.CreateBalanceTransactionParams) (database.BalanceTransaction, error)
}

// ValidateTopUp rejects amounts outside [MinTopUp, MaxTopUp] and sub-cent
// precision. Amounts are never rounded.
func ValidateTopUp(amount decimal.Decimal) error {
	if err := money.CheckPrecision(amount); err != nil {
		return ErrAmountPrecision
	}
	if amount.LessThan(MinTopUp) || amount.GreaterThan(MaxTopUp) {
		return ErrInvalidAmount
	}
	return nil
}

// lockBalance reads the balance and holds the user row lock until the
// transaction ends.
func lockBalance(ctx context.Context, store LedgerStore, userID int32) (decimal.Decimal, error) {
	n, err := store.GetUserBalanceForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("lock balance: %w", err)
	}
	return money.FromNumeric(n), nil
}

// requireFunds locks the balance and fails with *InsufficientFundsError when
// it is below amount.
func requireFunds(ctx context.Context, store LedgerStore, userID int32, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := lockBalance(ctx, store, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.LessThan(amount) {
		return decimal.Zero, &InsufficientFundsError{Required: amount, Available: balance}
	}
	return balance, nil
}

// credit adds a validated top-up to the balance.
func credit(ctx context.Context, store LedgerStore, userID int32, amount decimal.Decimal) (decimal.Decimal, database.BalanceTransaction, error) {
	if err := ValidateTopUp(amount); err != nil {
		return decimal.Zero, database.BalanceTransaction{}, err
	}
	if _, err := lockBalance(ctx, store, userID); err != nil {
		return decimal.Zero, database.BalanceTransaction{}, err
	}

	n, err := store.CreditUserBalance(ctx, database.CreditUserBalanceParams{
		ID:     userID,
		Amount: money.ToNumeric(amount),
	})
	if err != nil {
		return decimal.Zero, database.BalanceTransaction{}, fmt.Errorf("credit balance: %w", err)
	}

	entry, err := journal(ctx, store, userID, pgtype.Int4{}, enum.BalanceKindTopUp, amount, n)
	if err != nil {
		return decimal.Zero, database.BalanceTransaction{}, err
	}
	return money.FromNumeric(n), entry, nil
}

// debit subtracts amount for a reservation. The update itself is conditional
// on balance >= amount, so a debit can never drive the balance negative even
// if the caller skipped requireFunds.
func debit(ctx context.Context, store LedgerStore, userID, reservationID int32, amount decimal.Decimal) (decimal.Decimal, error) {
	n, err := store.DebitUserBalance(ctx, database.DebitUserBalanceParams{
		ID:     userID,
		Amount: money.ToNumeric(amount),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}

	if _, err := journal(ctx, store, userID, pgtype.Int4{Int32: reservationID, Valid: true}, enum.BalanceKindOrderDebit, amount, n); err != nil {
		return decimal.Zero, err
	}
	return money.FromNumeric(n), nil
}

// refund credits back a prior debit. It has no upper bound because it only
// replays an amount that was debited before.
func refund(ctx context.Context, store LedgerStore, userID, reservationID int32, amount decimal.Decimal) (decimal.Decimal, error) {
	n, err := store.CreditUserBalance(ctx, database.CreditUserBalanceParams{
		ID:     userID,
		Amount: money.ToNumeric(amount),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("refund balance: %w", err)
	}

	if _, err := journal(ctx, store, userID, pgtype.Int4{Int32: reservationID, Valid: true}, enum.BalanceKindRefund, amount, n); err != nil {
		return decimal.Zero, err
	}
	return money.FromNumeric(n), nil
}

func journal(ctx context.Context, store LedgerStore, userID int32, reservationID pgtype.Int4, kind string, amount decimal.Decimal, balanceAfter pgtype.Numeric) (database.BalanceTransaction, error) {
	entry, err := store.CreateBalanceTransaction(ctx, database.CreateBalanceTransactionParams{
		UserID:        userID,
		ReservationID: reservationID,
		Kind:          kind,
		Amount:        money.ToNumeric(amount),
		BalanceAfter:  balanceAfter,
	})
	if err != nil {
		return database.BalanceTransaction{}, fmt.Errorf("record %s: %w", kind, err)
	}
	return entry, nil
}
