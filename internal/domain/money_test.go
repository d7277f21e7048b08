package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(10_500_000, "BDT") // 10.50 BDT
	d := m.ToDecimal()
	assert.Equal(t, "10.5", d.String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(10.50)
	micros := FromDecimal(d)
	assert.Equal(t, int64(10_500_000), micros)
}

func TestParseAmount(t *testing.T) {
	micros, err := ParseAmount("5000")
	assert.NoError(t, err)
	assert.Equal(t, int64(5_000_000_000), micros)

	micros, err = ParseAmount("0.5")
	assert.NoError(t, err)
	assert.Equal(t, int64(500_000), micros)

	_, err = ParseAmount("abc")
	assert.Error(t, err)

	_, err = ParseAmount("-10")
	assert.Error(t, err)

	_, err = ParseAmount("0")
	assert.Error(t, err)
}

func TestMoney_Convert(t *testing.T) {
	// Source: 10000 BDT
	source := NewMoney(10_000_000_000, "BDT")

	// Rate: 1 BDT = 0.9 INR
	rate := decimal.NewFromFloat(0.9)

	// Target: 9000 INR
	target := source.Convert("INR", rate)

	assert.Equal(t, "INR", target.Currency)
	assert.Equal(t, int64(9_000_000_000), target.Amount)
}

func TestMoney_Convert_Precision(t *testing.T) {
	// 100 BDT at 0.925555 should round down to the nearest micro.
	source := NewMoney(100_000_000, "BDT")
	rate := decimal.NewFromFloat(0.925555)

	target := source.Convert("INR", rate)

	assert.Equal(t, int64(92_555_500), target.Amount)
}

func TestIsSupportedCurrency(t *testing.T) {
	assert.True(t, IsSupportedCurrency("BDT"))
	assert.True(t, IsSupportedCurrency("INR"))
	assert.False(t, IsSupportedCurrency("USD"))
	assert.False(t, IsSupportedCurrency(""))
}
