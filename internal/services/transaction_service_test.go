package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/retry"
	"fintrack/internal/storage/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	created []int64
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishCreated(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, id)
	return p.err
}

func (p *recordingPublisher) PublishDeleted(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

// flakyStore fails the first failures calls of every method with err.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return nil
}

func (f *flakyStore) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := f.fail(); err != nil {
		return core.Transaction{}, err
	}
	return f.Store.Save(ctx, t)
}

func (f *flakyStore) FindAll(ctx context.Context) ([]core.Transaction, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.FindAll(ctx)
}

func (f *flakyStore) FindByType(ctx context.Context, kind core.TransactionType) ([]core.Transaction, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.FindByType(ctx, kind)
}

var fastRetry = retry.Options{Attempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func tx(desc, amount string, kind core.TransactionType, category string) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        kind,
		Category:    category,
		Date:        core.NewDate(2024, 1, 1),
	}
}

func TestSummarySalaryAndRent(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New())

	_, err := svc.Save(ctx, tx("Salary", "1000.00", core.Income, "Job"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, tx("Rent", "400.00", core.Expense, "Housing"))
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", core.FormatAmount(sum.TotalIncome))
	assert.Equal(t, "400.00", core.FormatAmount(sum.TotalExpense))
	assert.Equal(t, "600.00", core.FormatAmount(sum.NetBalance))
}

func TestSummaryEmpty(t *testing.T) {
	sum, err := NewTransactionService(memory.New()).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0", core.FormatAmount(sum.TotalIncome))
	assert.Equal(t, "0", core.FormatAmount(sum.TotalExpense))
	assert.Equal(t, "0", core.FormatAmount(sum.NetBalance))
}

func TestNetBalanceIsExactDifference(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New())
	for _, a := range []string{"0.10", "0.20", "1234.56"} {
		_, err := svc.Save(ctx, tx("in", a, core.Income, ""))
		require.NoError(t, err)
	}
	for _, a := range []string{"0.30", "-5", "99.99"} {
		_, err := svc.Save(ctx, tx("out", a, core.Expense, ""))
		require.NoError(t, err)
	}

	income, err := svc.Total(ctx, core.Income)
	require.NoError(t, err)
	expense, err := svc.Total(ctx, core.Expense)
	require.NoError(t, err)
	sum, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.True(t, income.Sub(expense).Equal(sum.NetBalance))
	assert.Equal(t, "1234.86", core.FormatAmount(income))
	assert.Equal(t, "95.29", core.FormatAmount(expense))
}

func TestTotalRejectsUnknownKind(t *testing.T) {
	_, err := NewTransactionService(memory.New()).Total(context.Background(), "TRANSFER")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestSaveIgnoresIncomingID(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New())

	in := tx("Salary", "1000.00", core.Income, "Job")
	in.ID = 42
	saved, err := svc.Save(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, int64(42), saved.ID)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, saved.Equal(all[0]))
}

func TestAllEmptyIsNonNil(t *testing.T) {
	all, err := NewTransactionService(memory.New()).All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New())
	a, err := svc.Save(ctx, tx("a", "1", core.Income, ""))
	require.NoError(t, err)
	b, err := svc.Save(ctx, tx("b", "2", core.Expense, ""))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.NoError(t, svc.Delete(ctx, 9999))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestEventsArePublished(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), WithPublisher(pub))

	saved, err := svc.Save(ctx, tx("Salary", "1000.00", core.Income, "Job"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, saved.ID))

	assert.Equal(t, []int64{saved.ID}, pub.created)
	assert.Equal(t, []int64{saved.ID}, pub.deleted)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(), WithPublisher(pub))

	saved, err := svc.Save(ctx, tx("Rent", "400.00", core.Expense, "Housing"))
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, saved.ID))
}

func TestTransientReadErrorIsRetried(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 1, err: driver.ErrBadConn}
	svc := NewTransactionService(store, WithRetry(fastRetry))

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 2, store.calls)
}

func TestSaveIsNotRetriedWhenOutcomeUnknown(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 1, err: errors.New("read: connection reset by peer")}
	svc := NewTransactionService(store, WithRetry(fastRetry))

	_, err := svc.Save(context.Background(), tx("Rent", "400.00", core.Expense, ""))
	assert.Error(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestPersistentStoreFailureSurfaces(t *testing.T) {
	boom := errors.New("disk full")
	store := &flakyStore{Store: memory.New(), failures: 10, err: boom}
	svc := NewTransactionService(store, WithRetry(fastRetry))

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestByType(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	svc := NewTransactionService(store, WithRetry(fastRetry))
	_, err := svc.Save(ctx, tx("Salary", "1000.00", core.Income, "Job"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, tx("Rent", "400.00", core.Expense, "Housing"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		kind     core.TransactionType
		failures int
		wantDesc []string
		wantErr  error
	}{
		{"income", core.Income, 0, []string{"Salary"}, nil},
		{"expense after transient error", core.Expense, 1, []string{"Rent"}, nil},
		{"unknown kind", core.TransactionType("REFUND"), 0, nil, core.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.mu.Lock()
			store.failures, store.err, store.calls = tt.failures, driver.ErrBadConn, 0
			store.mu.Unlock()

			got, err := svc.ByType(ctx, tt.kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, store.calls)
				return
			}
			require.NoError(t, err)
			var desc []string
			for _, r := range got {
				desc = append(desc, r.Description)
			}
			assert.Equal(t, tt.wantDesc, desc)
			assert.Equal(t, tt.failures+1, store.calls)
		})
	}
}

func TestByTypeEmptyIsNonNil(t *testing.T) {
	svc := NewTransactionService(memory.New())
	got, err := svc.ByType(context.Background(), core.Expense)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
