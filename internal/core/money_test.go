package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1000.00", "1000.00", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.50", true},
		{"-4.10", "-4.10", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"1e50000000", "", false},
		{"1e-50000000", "", false},
		{"1e64", "1" + strings.Repeat("0", 64), true},
		{"0." + strings.Repeat("0", 63) + "1", "0." + strings.Repeat("0", 63) + "1", true},
		{strings.Repeat("9", 100), strings.Repeat("9", 100), true},
		{strings.Repeat("9", 101), "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.out, FormatAmount(got), tc.in)
	}
}

func TestFormatAmountKeepsScale(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(decimal.Zero))
	assert.Equal(t, "600.00", FormatAmount(decimal.RequireFromString("1000.00").Sub(decimal.RequireFromString("400.00"))))
	assert.Equal(t, "0.10", FormatAmount(decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.00"))))
}

func TestSum(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(Sum(nil)))

	ts := []Transaction{
		{Amount: decimal.RequireFromString("0.10")},
		{Amount: decimal.RequireFromString("0.20")},
		{Amount: decimal.RequireFromString("0.30")},
	}
	// no binary floating point drift
	assert.Equal(t, "0.60", FormatAmount(Sum(ts)))
}

func TestNewSummary(t *testing.T) {
	s := NewSummary(decimal.RequireFromString("1000.00"), decimal.RequireFromString("400.00"))
	assert.Equal(t, "1000.00", FormatAmount(s.TotalIncome))
	assert.Equal(t, "400.00", FormatAmount(s.TotalExpense))
	assert.Equal(t, "600.00", FormatAmount(s.NetBalance))
	assert.True(t, s.TotalIncome.Sub(s.TotalExpense).Equal(s.NetBalance))
}
