package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Kind classifies an expected business failure.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientFunds
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a business failure with a client-safe message.
// Errors that are not an *Error (after unwrapping) are internal.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Errors returned by the services.
var (
	ErrEmptyCart           = &Error{KindValidation, "items are required"}
	ErrInvalidQuantity     = &Error{KindValidation, "quantity must be >= 1"}
	ErrInvalidDishID       = &Error{KindValidation, "invalid dish_id"}
	ErrInvalidCafeteriaID  = &Error{KindValidation, "invalid cafeteria_id"}
	ErrDishUnavailable     = &Error{KindValidation, "dish is not available"}
	ErrInvalidAmount       = &Error{KindValidation, "amount must be between 0.01 and 500.00"}
	ErrAmountPrecision     = &Error{KindValidation, "amount must have at most two decimal places"}
	ErrInvalidPrice        = &Error{KindValidation, "price must be >= 0 with at most two decimal places"}
	ErrInvalidCategory     = &Error{KindValidation, "invalid category"}
	ErrInvalidRole         = &Error{KindValidation, "invalid role"}
	ErrInvalidDisplayOrder = &Error{KindValidation, "display_order must be >= 1"}
	ErrMenuDateRequired    = &Error{KindValidation, "menu_date is required"}
	ErrNameRequired        = &Error{KindValidation, "name is required"}

	ErrUserNotFound        = &Error{KindNotFound, "user not found"}
	ErrDishNotFound        = &Error{KindNotFound, "dish not found"}
	ErrCafeteriaNotFound   = &Error{KindNotFound, "cafeteria not found"}
	ErrReservationNotFound = &Error{KindNotFound, "reservation not found"}
	ErrMenuNotFound        = &Error{KindNotFound, "daily menu not found"}
	ErrMenuItemNotFound    = &Error{KindNotFound, "daily menu item not found"}

	ErrInsufficientFunds = &Error{KindInsufficientFunds, "insufficient balance"}

	ErrAlreadyCancelled = &Error{KindConflict, "reservation is already cancelled"}
	ErrMenuExists       = &Error{KindConflict, "a menu already exists for this cafeteria and date"}
	ErrDishInUse        = &Error{KindConflict, "dish is still referenced by menus or orders"}
	ErrCafeteriaInUse   = &Error{KindConflict, "cafeteria is still referenced by menus or reservations"}
)

// InsufficientFundsError carries the amounts behind a failed balance check.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// KindOf reports the kind of err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Postgres error codes mapped to business errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

const menuUniqueConstraint = "daily_menus_cafeteria_id_menu_date_key"

func isPgError(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

func isMenuConflict(err error) bool {
	return isPgError(err, pgUniqueViolation, menuUniqueConstraint)
}

func isForeignKeyViolation(err error) bool {
	return isPgError(err, pgForeignKeyViolation, "")
}
