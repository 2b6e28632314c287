// Package memory is an in-process TransactionAppender used in tests and
// when running without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []Entry
}

// Entry records one appended transaction together with its ledger kind.
type Entry struct {
	Kind        core.Kind
	Transaction core.Transaction
}

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, kind core.Kind, t core.Transaction) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Entry{Kind: kind, Transaction: t})
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.items...)
}
