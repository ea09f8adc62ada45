package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var _ ports.RowMirror = (*Client)(nil)

// appendBatchSize caps the rows sent in one append request.
const appendBatchSize = 500

// Client mirrors transactions into one sheet of a spreadsheet, one row per
// transaction keyed by the id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, spreadsheetID, sheetName), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// EnsureHeader writes the column titles when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1:F1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	return nil
}

// AppendTransaction implements ports.RowMirror. A transaction that is already
// mirrored is not appended twice.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction without id cannot be mirrored")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}
	if idx := rowIndexOf(ids, t.ID); idx >= 0 {
		ref := rowRef(c.sheetName, idx)
		slog.InfoContext(ctx, "Transaction already mirrored", "id", t.ID, "row_ref", ref)
		return ref, nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:F", c.sheetName), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row to %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// AppendTransactions implements ports.RowMirror. The id column is read once
// and only transactions not yet mirrored are appended, in batches. It returns
// the number of rows appended.
func (c *Client) AppendTransactions(ctx context.Context, ts []core.Transaction) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	values, err := c.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	seen := mirroredIDs(values)

	var pending [][]any
	for _, t := range ts {
		if t.ID <= 0 {
			return 0, fmt.Errorf("transaction without id cannot be mirrored")
		}
		key := strconv.FormatInt(t.ID, 10)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pending = append(pending, rowValues(t))
	}

	appended := 0
	for start := 0; start < len(pending); start += appendBatchSize {
		end := min(start+appendBatchSize, len(pending))
		vr := &gsheet.ValueRange{Values: pending[start:end]}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:F", c.sheetName), vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return appended, fmt.Errorf("append %d rows to %s: %w", end-start, c.sheetName, err)
		}
		appended = end
	}
	return appended, nil
}

// DeleteTransaction implements ports.RowMirror. A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	idx := rowIndexOf(ids, id)
	if idx < 0 {
		slog.InfoContext(ctx, "No mirrored row to delete", "id", id)
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
					// sheet 0 and row 0 are valid values
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", idx+1, c.sheetName, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// resolveSheetID looks up the numeric id of the sheet tab once.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	id, ok := sheetIDByTitle(ss.Sheets, c.sheetName)
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
	}
	c.sheetID = &id
	return id, nil
}
