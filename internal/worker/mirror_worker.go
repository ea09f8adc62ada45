package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// MirrorWorker keeps the spreadsheet copy of the transactions table in step
// with the events published by the API.
type MirrorWorker struct {
	store  ports.TransactionReader
	mirror ports.RowMirror
	logger *log.Logger
}

func NewMirrorWorker(store ports.TransactionReader, mirror ports.RowMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies a single event. It matches the handler signature of
// amqp.Client.ConsumeEvents; a returned error requeues the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Event {
	case amqp.EventCreated:
		return w.handleCreated(ctx, ev.ID)
	case amqp.EventDeleted:
		return w.handleDeleted(ctx, ev.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", log.FieldEvent, ev.Event, log.FieldTransactionID, ev.ID)
		return nil
	}
}

func (w *MirrorWorker) handleCreated(ctx context.Context, id int64) error {
	t, err := w.store.FindByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before the worker caught up; the delete event follows
		w.logger.InfoContext(ctx, "Transaction no longer stored, skipping mirror", log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.mirror.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction %d: %w", id, err)
	}

	w.logger.InfoContext(ctx, "Mirrored transaction", log.NewFields().
		WithOperation(log.OpMirror).
		WithTransaction(t.ID, t.Type.String(), core.FormatAmount(t.Amount)).
		ToSlice()...)
	w.logger.DebugContext(ctx, "Mirror row reference", log.FieldRowRef, ref)
	return nil
}

func (w *MirrorWorker) handleDeleted(ctx context.Context, id int64) error {
	if err := w.mirror.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("remove mirrored transaction %d: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Removed mirrored transaction", log.FieldOperation, log.OpDelete, log.FieldTransactionID, id)
	return nil
}

// Backfill mirrors every stored transaction missing from the mirror and
// returns how many rows were added. Rows already present are left alone, so
// it is safe to run at every worker start to recover events lost while the
// worker was down.
func (w *MirrorWorker) Backfill(ctx context.Context, store ports.TransactionStore) (int, error) {
	all, err := store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions for backfill: %w", err)
	}

	added, err := w.mirror.AppendTransactions(ctx, all)
	if err != nil {
		return added, fmt.Errorf("backfill: %w", err)
	}

	w.logger.InfoContext(ctx, "Startup backfill completed", "total", len(all), "mirrored", added)
	return added, nil
}
