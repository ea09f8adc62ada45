package google

import (
	"fmt"
	"strconv"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

const defaultSheetName = "Transactions"

func headerRow() []any {
	return []any{"id", "date", "description", "amount", "type", "category"}
}

// rowValues lays a transaction out as id | date | description | amount |
// type | category. The amount is written as text so its scale survives.
func rowValues(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.Date.String(),
		t.Description,
		core.FormatAmount(t.Amount),
		t.Type.String(),
		t.Category,
	}
}

// rowIndexOf returns the zero-based row whose first cell holds id, or -1.
func rowIndexOf(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i
		}
	}
	return -1
}

// mirroredIDs collects the ids found in the first cell of each row.
func mirroredIDs(values [][]any) map[string]struct{} {
	ids := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		ids[strings.TrimSpace(fmt.Sprint(row[0]))] = struct{}{}
	}
	return ids
}

func rowRef(sheet string, idx int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, idx+1, idx+1)
}

func sheetIDByTitle(sheets []*gsheet.Sheet, title string) (int64, bool) {
	for _, s := range sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Properties.Title), strings.TrimSpace(title)) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}
