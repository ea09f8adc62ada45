package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

// fakeSheets serves the handful of Sheets endpoints the client calls,
// backed by an in-memory grid.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	appends int
	reads   int
	deletes []int64
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		n := len(f.rows)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Transactions!A" + itoa(n) + ":F" + itoa(n)},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			start := rq.DeleteDimension.Range.StartIndex
			f.deletes = append(f.deletes, start)
			f.rows = append(f.rows[:start], f.rows[start+1:]...)
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(vr.Values, f.rows...)
		w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		f.reads++
		out := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			out = append(out, row[:1])
		}
		if strings.HasSuffix(path, "A1:F1") {
			out = out[:min(1, len(out))]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": out})
	case r.Method == http.MethodGet:
		w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"Other"}},{"properties":{"sheetId":42,"title":"Transactions"}}]}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-123", "Transactions"), fake
}

func sample(id int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "Rent",
		Amount:      decimal.RequireFromString("400.00"),
		Type:        core.Expense,
		Category:    "Housing",
		Date:        core.NewDate(2024, 1, 2),
	}
}

func TestAppendAndDeleteRow(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	require.NoError(t, c.EnsureHeader(ctx))
	require.NoError(t, c.EnsureHeader(ctx))
	require.Len(t, fake.rows, 1, "header is written once")

	ref, err := c.AppendTransaction(ctx, sample(7))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:F2", ref)
	assert.Equal(t, []any{"7", "2024-01-02", "Rent", "400.00", "EXPENSE", "Housing"}, fake.rows[1])

	ref, err = c.AppendTransaction(ctx, sample(7))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:F2", ref)
	assert.Equal(t, 1, fake.appends, "redelivered event must not duplicate the row")

	require.NoError(t, c.DeleteTransaction(ctx, 7))
	assert.Equal(t, []int64{1}, fake.deletes)
	assert.Len(t, fake.rows, 1)

	require.NoError(t, c.DeleteTransaction(ctx, 7), "missing row is a no-op")
	assert.Len(t, fake.deletes, 1)
}

func TestAppendTransactionsReadsIDsOnce(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)
	require.NoError(t, c.EnsureHeader(ctx))
	_, err := c.AppendTransaction(ctx, sample(2))
	require.NoError(t, err)
	fake.reads = 0
	fake.appends = 0

	var batch []core.Transaction
	for id := int64(1); id <= appendBatchSize+10; id++ {
		batch = append(batch, sample(id))
	}
	batch = append(batch, sample(3))

	n, err := c.AppendTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, appendBatchSize+9, n, "id 2 was mirrored and id 3 is repeated")
	assert.Equal(t, 1, fake.reads)
	assert.Equal(t, 2, fake.appends)
	assert.Len(t, fake.rows, appendBatchSize+11)

	n, err = c.AppendTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, fake.appends)
}

func TestAppendTransactionsEmpty(t *testing.T) {
	c, fake := newFakeClient(t)
	n, err := c.AppendTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fake.appends)
}

func TestAppendRequiresID(t *testing.T) {
	c, _ := newFakeClient(t)
	_, err := c.AppendTransaction(context.Background(), sample(0))
	assert.Error(t, err)
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Transactions"}
	_, err := c.AppendTransaction(context.Background(), sample(1))
	assert.Error(t, err)
	_, err = c.AppendTransactions(context.Background(), []core.Transaction{sample(1)})
	assert.Error(t, err)
	assert.Error(t, c.DeleteTransaction(context.Background(), 1))
}

func TestNewRejectsMissingSettings(t *testing.T) {
	_, err := New(context.Background(), "", "Transactions", []byte(`{}`))
	assert.Error(t, err)
	_, err = New(context.Background(), "sheet", "Transactions", nil)
	assert.Error(t, err)
}
