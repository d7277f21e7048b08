package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount   int64  // micros
	Currency string // ISO 4217
}

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(1_000_000))
}

// FromDecimal converts a decimal.Decimal to int64 micros.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(1_000_000)).IntPart()
}

// ParseAmount parses a user-supplied amount string into micros.
// The string must be a positive decimal number.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount is not a number: %q", s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive: %q", s)
	}
	return FromDecimal(d), nil
}

// Convert converts the money to a target currency using a given rate.
// The rate should be (Target / Source). Rounds down to the nearest micro.
func (m Money) Convert(targetCurrency string, rate decimal.Decimal) Money {
	amountDec := m.ToDecimal().Mul(rate)
	return Money{
		Amount:   FromDecimal(amountDec),
		Currency: targetCurrency,
	}
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
