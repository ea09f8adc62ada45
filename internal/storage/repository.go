package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ports.TransactionStore  = (*SQLiteRepository)(nil)
	_ ports.TransactionReader = (*SQLiteRepository)(nil)
	_ ports.Pinger            = (*SQLiteRepository)(nil)
)

// sqlitePragmas make writers wait for the lock instead of failing with
// SQLITE_BUSY, and let readers proceed while a write is in progress.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection queues writes in the pool
	// rather than in the engine's lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements ports.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements ports.TransactionStore. Any id on t is ignored.
func (r *SQLiteRepository) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Description: t.Description,
		Amount:      core.FormatAmount(t.Amount),
		Type:        string(t.Type),
		Category:    t.Category,
		Date:        t.Date.String(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	saved, err := row.toCore()
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", saved.ID,
		"type", row.Type,
		"amount", row.Amount,
		"date", row.Date)

	return saved, nil
}

// FindAll implements ports.TransactionStore
func (r *SQLiteRepository) FindAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreSlice(rows)
}

// FindByType implements ports.TransactionStore
func (r *SQLiteRepository) FindByType(ctx context.Context, kind core.TransactionType) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByType(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list transactions of type %s: %w", kind, err)
	}
	return toCoreSlice(rows)
}

// DeleteByID implements ports.TransactionStore
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction delete executed", "id", id, "rows_affected", n)
	return nil
}

// FindByID implements ports.TransactionReader
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row.toCore()
}

func (t Transaction) toCore() (core.Transaction, error) {
	amount, err := core.ParseAmount(t.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d amount %q: %w", t.ID, t.Amount, err)
	}
	date, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d date %q: %w", t.ID, t.Date, err)
	}
	return core.Transaction{
		ID:          t.ID,
		Description: t.Description,
		Amount:      amount,
		Type:        core.TransactionType(t.Type),
		Category:    t.Category,
		Date:        date,
	}, nil
}

func toCoreSlice(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
