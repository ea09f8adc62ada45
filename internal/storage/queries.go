package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the prepared SQL of the transactions table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Transaction mirrors a row of the transactions table. Amount and Date are
// kept as text so the exact decimal and calendar date survive storage.
type Transaction struct {
	ID          int64
	Description string
	Amount      string
	Type        string
	Category    string
	Date        string
}

type CreateTransactionParams struct {
	Description string
	Amount      string
	Type        string
	Category    string
	Date        string
}

const transactionColumns = `id, description, amount, type, category, date`

const createTransaction = `
INSERT INTO transactions (description, amount, type, category, date)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Description,
		arg.Amount,
		arg.Type,
		arg.Category,
		arg.Date,
	)
	var i Transaction
	err := scanTransaction(row, &i)
	return i, err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := scanTransaction(row, &i)
	return i, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listTransactionsByType = `SELECT ` + transactionColumns + ` FROM transactions WHERE type = ? ORDER BY id`

func (q *Queries) ListTransactionsByType(ctx context.Context, kind string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByType, kind)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner, i *Transaction) error {
	return s.Scan(
		&i.ID,
		&i.Description,
		&i.Amount,
		&i.Type,
		&i.Category,
		&i.Date,
	)
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := scanTransaction(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
