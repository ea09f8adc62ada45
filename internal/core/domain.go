package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// DateLayout is the wire and storage layout of a calendar date.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date. The time-of-day is always midnight UTC.
	Date struct {
		time.Time
	}

	// Transaction is a single recorded money movement.
	//
	// Amount is kept exactly as submitted: expenses are not negated, the sign
	// convention belongs to the caller.
	Transaction struct {
		ID          int64 // assigned by the store, 0 until saved
		Description string
		Amount      decimal.Decimal
		Type        TransactionType
		Category    string
		Date        Date
	}
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Valid reports whether t is one of the known transaction kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts INCOME or EXPENSE, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate enforces the type constraints of a transaction. Free-text fields
// are not constrained.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Equal compares every field, using decimal equality for the amount.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		t.Description == o.Description &&
		t.Amount.Equal(o.Amount) &&
		t.Type == o.Type &&
		t.Category == o.Category &&
		t.Date.Equal(o.Date.Time)
}
