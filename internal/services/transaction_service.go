package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/retry"
)

// TransactionService is the pass-through layer between the HTTP façade and a
// storage gateway. It adds aggregation, transient-error retry and best-effort
// event publishing; it never alters the records it is given.
type TransactionService struct {
	store     ports.TransactionStore
	publisher ports.EventPublisher
	retry     retry.Options
	logger    *log.Logger
}

// Option customises a TransactionService.
type Option func(*TransactionService)

// WithPublisher announces saves and deletes on p.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

// WithRetry overrides the store retry policy.
func WithRetry(opts retry.Options) Option {
	return func(s *TransactionService) { s.retry = opts }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) { s.logger = l.WithComponent(log.ComponentService) }
}

func NewTransactionService(store ports.TransactionStore, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:  store,
		retry:  retry.DefaultOptions(),
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentService),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists t as a new record and returns it with its generated id.
// Any id already on t is ignored.
func (s *TransactionService) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var saved core.Transaction
	err := retry.Do(ctx, s.retry, retry.IsNotExecuted, func(ctx context.Context) error {
		var err error
		saved, err = s.store.Save(ctx, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction recorded", log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(saved.ID, saved.Type.String(), core.FormatAmount(saved.Amount)).
		ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, saved.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish created event", log.NewFields().
				WithOperation(log.OpPublish).
				WithTransaction(saved.ID, "", "").
				WithError(err).
				ToSlice()...)
		}
	}

	return saved, nil
}

// All returns every stored transaction in insertion order.
func (s *TransactionService) All(ctx context.Context) ([]core.Transaction, error) {
	var all []core.Transaction
	err := retry.Do(ctx, s.retry, retry.IsTransient, func(ctx context.Context) error {
		var err error
		all, err = s.store.FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if all == nil {
		all = []core.Transaction{}
	}
	return all, nil
}

// ByType returns the transactions of one kind in insertion order.
func (s *TransactionService) ByType(ctx context.Context, kind core.TransactionType) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("list %s: %w", kind, core.ErrInvalidType)
	}

	var records []core.Transaction
	err := retry.Do(ctx, s.retry, retry.IsTransient, func(ctx context.Context) error {
		var err error
		records, err = s.store.FindByType(ctx, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if records == nil {
		records = []core.Transaction{}
	}
	return records, nil
}

// Total sums the amounts of every transaction of the given kind. No matching
// records yields zero.
func (s *TransactionService) Total(ctx context.Context, kind core.TransactionType) (decimal.Decimal, error) {
	records, err := s.ByType(ctx, kind)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total: %w", err)
	}
	return core.Sum(records), nil
}

// Summary computes both totals concurrently and derives the net balance.
func (s *TransactionService) Summary(ctx context.Context) (core.Summary, error) {
	var income, expense decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.Total(gctx, core.Income)
		return err
	})
	g.Go(func() error {
		var err error
		expense, err = s.Total(gctx, core.Expense)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}

	return core.NewSummary(income, expense), nil
}

// Delete removes the record with the given id. An unknown id is not an error.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	err := retry.Do(ctx, s.retry, retry.IsTransient, func(ctx context.Context) error {
		return s.store.DeleteByID(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish deleted event", log.NewFields().
				WithOperation(log.OpPublish).
				WithTransaction(id, "", "").
				WithError(err).
				ToSlice()...)
		}
	}

	return nil
}
