package core

import "github.com/shopspring/decimal"

// Summary is the aggregate view over every stored transaction.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetBalance   decimal.Decimal
}

// NewSummary computes the net balance as income minus expense.
func NewSummary(income, expense decimal.Decimal) Summary {
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		NetBalance:   income.Sub(expense),
	}
}
