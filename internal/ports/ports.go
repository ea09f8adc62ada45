package ports

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the storage gateway and outbound adapters.
type (
	// TransactionStore is the storage gateway. Save always inserts and assigns
	// a fresh id; DeleteByID succeeds whether or not the id exists.
	TransactionStore interface {
		Save(ctx context.Context, t core.Transaction) (core.Transaction, error)
		FindAll(ctx context.Context) ([]core.Transaction, error)
		FindByType(ctx context.Context, kind core.TransactionType) ([]core.Transaction, error)
		DeleteByID(ctx context.Context, id int64) error
	}

	// TransactionReader looks up a single stored transaction.
	TransactionReader interface {
		// FindByID returns core.ErrNotFound when the id does not exist.
		FindByID(ctx context.Context, id int64) (core.Transaction, error)
	}

	// Pinger reports whether the backing store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// EventPublisher announces changes to the stored set.
	EventPublisher interface {
		PublishCreated(ctx context.Context, id int64) error
		PublishDeleted(ctx context.Context, id int64) error
	}

	// RowMirror keeps an external copy of the transaction table.
	RowMirror interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// AppendTransactions mirrors every transaction not yet present and
		// returns how many rows it added.
		AppendTransactions(ctx context.Context, ts []core.Transaction) (int, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}
)
