// Package money converts between request input, shopspring decimals and
// Postgres numeric(10,2) columns. Amounts are never rounded: values with more
// than two decimal places are rejected.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places of the currency unit.
const Places = 2

var (
	ErrInvalid   = errors.New("amount is not a valid decimal number")
	ErrPrecision = errors.New("amount has more than two decimal places")
)

// Parse reads a decimal string such as "12.50". Scientific notation and
// sub-cent precision are rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalid
	}
	if err := CheckPrecision(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckPrecision fails when d cannot be represented in whole cents.
// Trailing zeros are fine ("5.500" is 5.50).
func CheckPrecision(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Places)) {
		return ErrPrecision
	}
	return nil
}

// FromNumeric converts a pgtype.Numeric to a decimal. NULL becomes zero.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToNumeric converts a decimal to a pgtype.Numeric with two decimal places.
func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(Places))
	return n
}

// Format renders a numeric column as "0.00".
func Format(n pgtype.Numeric) string {
	return FromNumeric(n).StringFixed(Places)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("money.MustParse(%q): %v", s, err))
	}
	return d
}
