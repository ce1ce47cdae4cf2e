package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/aliasstore"
	"github.com/leofalp/replyparse/providers/observability"
)

// Store is a concurrency-safe in-memory alias store, mostly useful in tests
// and for sharing a table between registries of one process.
type Store struct {
	mu    sync.RWMutex
	table alias.Table
	saves int
}

// New returns a store holding a copy of initial.
func New(initial alias.Table) *Store {
	return &Store{table: initial.Clone()}
}

var _ aliasstore.Store = (*Store)(nil)

// Load returns a copy of the stored table.
func (s *Store) Load(ctx context.Context) (alias.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Clone(), nil
}

// Save merges t into the stored table. When an observability span is present
// in ctx, the resulting entry count is recorded on it.
func (s *Store) Save(ctx context.Context, t alias.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := aliasstore.Validate(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.table = aliasstore.Merge(s.table, t)
	s.saves++
	total := len(s.table)
	s.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrStoreBackend, "memory"),
			observability.Int(observability.AttrStoreEntries, total),
		)
	}
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
