package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var (
	_ ports.TransactionStore  = (*Store)(nil)
	_ ports.TransactionReader = (*Store)(nil)
	_ ports.Pinger            = (*Store)(nil)
)

// Store keeps transactions in insertion order for the life of the process.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
}

func New() *Store {
	return &Store{nextID: 1}
}

// Save stores a copy of t under a freshly assigned id.
func (s *Store) Save(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) FindAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.Transaction, 0, len(s.items)), s.items...), nil
}

func (s *Store) FindByType(_ context.Context, kind core.TransactionType) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if t.Type == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

// DeleteByID removes the record with id, if any.
func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}
