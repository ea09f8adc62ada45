package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

type fakeMirror struct {
	mu      sync.Mutex
	rows    map[int64]core.Transaction
	appends int
	batches int
	err     error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[int64]core.Transaction{}}
}

func (m *fakeMirror) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if _, ok := m.rows[t.ID]; !ok {
		m.appends++
		m.rows[t.ID] = t
	}
	return "Transactions!A2:F2", nil
}

func (m *fakeMirror) AppendTransactions(_ context.Context, ts []core.Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.batches++
	added := 0
	for _, t := range ts {
		if _, ok := m.rows[t.ID]; !ok {
			m.appends++
			m.rows[t.ID] = t
			added++
		}
	}
	return added, nil
}

func (m *fakeMirror) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.rows, id)
	return nil
}

func seed(t *testing.T, store *memory.Store, desc, amount string) core.Transaction {
	t.Helper()
	saved, err := store.Save(context.Background(), core.Transaction{
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        core.Income,
		Date:        core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)
	return saved
}

func TestHandleCreatedMirrorsStoredRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := newFakeMirror()
	w := NewMirrorWorker(store, mirror, nil)

	saved := seed(t, store, "Salary", "1000.00")
	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, saved.ID)))

	require.Contains(t, mirror.rows, saved.ID)
	assert.True(t, saved.Equal(mirror.rows[saved.ID]))
}

func TestHandleCreatedSkipsVanishedRecord(t *testing.T) {
	mirror := newFakeMirror()
	w := NewMirrorWorker(memory.New(), mirror, nil)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, 404)))
	assert.Empty(t, mirror.rows)
}

func TestHandleDeletedRemovesRow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := newFakeMirror()
	w := NewMirrorWorker(store, mirror, nil)

	saved := seed(t, store, "Salary", "1000.00")
	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, saved.ID)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, saved.ID)))

	assert.Empty(t, mirror.rows)
}

func TestMirrorFailureIsReturnedForRequeue(t *testing.T) {
	store := memory.New()
	mirror := newFakeMirror()
	mirror.err = errors.New("quota exceeded")
	w := NewMirrorWorker(store, mirror, nil)

	saved := seed(t, store, "Salary", "1000.00")
	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, saved.ID))
	assert.ErrorIs(t, err, mirror.err)
}

func TestBackfill(t *testing.T) {
	tests := []struct {
		name      string
		premirror bool
		mirrorErr error
		wantAdded int
		wantErr   bool
	}{
		{"fresh mirror", false, nil, 2, false},
		{"already mirrored", true, nil, 0, false},
		{"mirror down", false, errors.New("quota exceeded"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			mirror := newFakeMirror()
			w := NewMirrorWorker(store, mirror, nil)

			a := seed(t, store, "a", "1")
			b := seed(t, store, "b", "2.50")
			if tt.premirror {
				mirror.rows[a.ID] = a
				mirror.rows[b.ID] = b
			}
			mirror.err = tt.mirrorErr

			n, err := w.Backfill(ctx, store)
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.mirrorErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, n)
			assert.Equal(t, 1, mirror.batches, "one batch per backfill")
			assert.Len(t, mirror.rows, 2)
		})
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := newFakeMirror()
	w := NewMirrorWorker(store, mirror, nil)

	seed(t, store, "a", "1")
	seed(t, store, "b", "2.50")

	n, err := w.Backfill(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.Backfill(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, mirror.appends)
}
