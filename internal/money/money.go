package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when callers pass an empty currency code.
const DefaultCurrency = "EUR"

var (
	ErrNegativeAmount   = errors.New("money: amount cannot be negative")
	ErrInvalidCurrency  = errors.New("money: currency must be a 3-letter code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

var hundred = decimal.NewFromInt(100)

// Money is an immutable monetary value stored in integer minor units (cents)
// with an ISO 4217 currency code. All operations return new values.
type Money struct {
	cents    int64
	currency string
}

// New builds a Money from an amount in cents.
func New(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{cents: cents, currency: currency}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	if len(currency) != 3 {
		currency = DefaultCurrency
	}
	return Money{cents: 0, currency: currency}
}

// NewFromDecimal converts a decimal amount to cents, rounding half-up.
func NewFromDecimal(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := amount.Mul(hundred).Round(0).IntPart()
	return New(cents, currency)
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.cents }

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

// Decimal returns the amount as a 2-decimal-place value, safe to persist
// into a numeric(12,2) column.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.cents == 0 }

// Equals reports whether two values have the same amount and currency.
func (m Money) Equals(other Money) bool {
	return m.cents == other.cents && m.Currency() == other.Currency()
}

// Add returns the sum of two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{cents: m.cents + other.cents, currency: m.Currency()}, nil
}

// Subtract returns the difference of two values of the same currency.
// A result below zero is rejected; debits are modeled as subtraction of
// non-negative values, never as negative money.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if other.cents > m.cents {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: m.cents - other.cents, currency: m.Currency()}, nil
}

// Multiply scales the amount by a non-negative decimal factor, rounding the
// result half-up to the nearest cent.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := decimal.NewFromInt(m.cents).Mul(factor).Round(0).IntPart()
	return Money{cents: cents, currency: m.Currency()}, nil
}

// ApplyDiscount subtracts a percentage (0-100) from the amount.
func (m Money) ApplyDiscount(percentage decimal.Decimal) (Money, error) {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return Money{}, fmt.Errorf("money: discount percentage out of range: %s", percentage)
	}
	discount, err := m.Multiply(percentage.Div(hundred))
	if err != nil {
		return Money{}, err
	}
	return m.Subtract(discount)
}

// String renders the value as "12.34 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(2), m.Currency())
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency() != other.Currency() {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return nil
}
