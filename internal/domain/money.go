package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMixedCurrency is returned by Money arithmetic when operands carry
// different currencies.
var ErrMixedCurrency = fmt.Errorf("domain: mixed-currency arithmetic")

// Money is an exact-decimal amount scoped to a single Currency. Never use
// binary floating point for monetary values — see SPEC_FULL.md Part 2.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney constructs a Money value.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Add returns m+other. Fails if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency.Code != other.Currency.Code {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrMixedCurrency, m.Currency.Code, other.Currency.Code)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m-other. Fails if currencies differ.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency.Code != other.Currency.Code {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrMixedCurrency, m.Currency.Code, other.Currency.Code)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Mul returns m scaled by a dimensionless factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// IsNegative reports whether the amount is strictly negative.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// String renders the amount rounded to the currency's display precision.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(int32(m.Currency.Precision)), m.Currency.Code)
}
