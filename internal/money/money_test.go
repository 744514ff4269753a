package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		wantErr  error
	}{
		{name: "valid amount", cents: 1250, currency: "EUR"},
		{name: "zero amount", cents: 0, currency: "USD"},
		{name: "empty currency defaults", cents: 100, currency: ""},
		{name: "negative amount", cents: -1, currency: "EUR", wantErr: ErrNegativeAmount},
		{name: "bad currency code", cents: 100, currency: "EURO", wantErr: ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cents, tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cents, m.Cents())
			if tt.currency == "" {
				assert.Equal(t, DefaultCurrency, m.Currency())
			} else {
				assert.Equal(t, tt.currency, m.Currency())
			}
		})
	}
}

func TestNewFromDecimalRoundsHalfUp(t *testing.T) {
	tests := []struct {
		in        string
		wantCents int64
	}{
		{"10.00", 1000},
		{"10.004", 1000},
		{"10.005", 1001},
		{"10.015", 1002},
		{"0.005", 1},
		{"199.50", 19950},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			require.NoError(t, err)
			m, err := NewFromDecimal(d, "EUR")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCents, m.Cents())
		})
	}
}

func TestNewFromDecimalRejectsNegative(t *testing.T) {
	_, err := NewFromDecimal(decimal.NewFromFloat(-0.01), "EUR")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestDecimalRoundTrip(t *testing.T) {
	m, err := New(144950, "EUR")
	require.NoError(t, err)

	assert.Equal(t, "1449.50", m.Decimal().StringFixed(2))

	back, err := NewFromDecimal(m.Decimal(), m.Currency())
	require.NoError(t, err)
	assert.True(t, m.Equals(back))
}

func TestAddSubtract(t *testing.T) {
	a, _ := New(125000, "EUR")
	b, _ := New(19950, "EUR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(144950), sum.Cents())

	diff, err := sum.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Equals(a))

	_, err = b.Subtract(a)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestCurrencyMismatch(t *testing.T) {
	eur, _ := New(100, "EUR")
	usd, _ := New(100, "USD")

	_, err := eur.Add(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = eur.Subtract(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.False(t, eur.Equals(usd))
}

func TestMultiply(t *testing.T) {
	m, _ := New(20000, "EUR") // 200.00

	five := decimal.NewFromInt(5)
	total, err := m.Multiply(five)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), total.Cents())

	// 21% tax on 1000.00 = 210.00
	taxRate, _ := decimal.NewFromString("0.21")
	tax, err := total.Multiply(taxRate)
	require.NoError(t, err)
	assert.Equal(t, int64(21000), tax.Cents())

	_, err = m.Multiply(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestApplyDiscount(t *testing.T) {
	m, _ := New(10000, "EUR")

	discounted, err := m.ApplyDiscount(decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, int64(7500), discounted.Cents())

	_, err = m.ApplyDiscount(decimal.NewFromInt(101))
	assert.Error(t, err)

	_, err = m.ApplyDiscount(decimal.NewFromInt(-5))
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	m, _ := New(1234, "EUR")
	assert.Equal(t, "12.34 EUR", m.String())

	assert.Equal(t, "0.00 USD", Zero("USD").String())
}

func TestZeroFallsBackToDefaultCurrency(t *testing.T) {
	z := Zero("")
	assert.True(t, z.IsZero())
	assert.Equal(t, DefaultCurrency, z.Currency())
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrNegativeAmount, ErrCurrencyMismatch))
	assert.False(t, errors.Is(ErrInvalidCurrency, ErrNegativeAmount))
}
