package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// amountField accepts a JSON string or a JSON number and keeps its literal
// text so the decimal scale survives.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a string or a number")
		}
		*a = amountField(n.String())
		return nil
	}
}

// createTransactionRequest is the POST body. Any id the client sends is
// accepted and discarded.
type createTransactionRequest struct {
	ID          *int64      `json:"id"`
	Description string      `json:"description"`
	Amount      amountField `json:"amount" validate:"required"`
	Type        string      `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    string      `json:"category"`
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
}

func (r createTransactionRequest) toCore() (core.Transaction, error) {
	if err := validate.Struct(r); err != nil {
		return core.Transaction{}, validationError(err)
	}

	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", string(r.Amount), err)
	}
	kind, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("type %q: %w", r.Type, err)
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", r.Date, err)
	}

	t := core.Transaction{
		Description: r.Description,
		Amount:      amount,
		Type:        kind,
		Category:    r.Category,
		Date:        date,
	}
	return t, t.Validate()
}

// validationError turns validator output into one readable message.
func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, field+" must be one of "+fe.Param())
		case "datetime":
			msgs = append(msgs, field+" must be formatted as YYYY-MM-DD")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Description: t.Description,
		Amount:      core.FormatAmount(t.Amount),
		Type:        t.Type.String(),
		Category:    t.Category,
		Date:        t.Date.String(),
	}
}

func newTransactionList(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type summaryResponse struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	NetBalance   string `json:"netBalance"`
}

func newSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:  core.FormatAmount(s.TotalIncome),
		TotalExpense: core.FormatAmount(s.TotalExpense),
		NetBalance:   core.FormatAmount(s.NetBalance),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
