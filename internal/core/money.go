// Package core provides amount parsing and aggregation utilities.
//
// Amounts are shopspring decimals. Parsing keeps the scale the caller wrote,
// so "1000.00" stays two decimal places through storage and sums.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts outside these bounds are rejected. Expanding an exponent of millions
// of digits on every read would stall the process.
const (
	MaxAmountExponent = 64
	MaxAmountDigits   = 100
)

// ParseAmount converts a decimal string to an exact amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs are
// kept as written; an empty or non-numeric string, or one past
// MaxAmountDigits or MaxAmountExponent, is ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34
//	ParseAmount("12,30") -> 12.30
//	ParseAmount("-5")    -> -5
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp > MaxAmountExponent || exp < -MaxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.NumDigits() > MaxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d with its own scale: 1000.00 stays "1000.00" and a
// zero accumulator renders as "0".
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Sum adds the amounts of ts starting from zero.
func Sum(ts []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		total = total.Add(t.Amount)
	}
	return total
}
