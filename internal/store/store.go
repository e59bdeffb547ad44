// Package store maps resource names to tables.
//
// The store is independent of the lock registry. Callers hold a name's lock
// while they read or replace its table; the store's own mutex only protects
// the map.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/tablespace/table"
)

var (
	// ErrNotFound is returned when no table is stored under a name.
	ErrNotFound = errors.New("resource not found")
	// ErrTypeMismatch is returned when the stored table has another kind
	// than requested.
	ErrTypeMismatch = errors.New("resource type mismatch")
)

// Store holds the tables of one workspace.
type Store struct {
	mu     sync.RWMutex
	tables map[string]table.Table
}

// New creates an empty store.
func New() *Store {
	return &Store{tables: make(map[string]table.Table)}
}

// Insert stores t under name and returns the table it replaced, if any.
func (s *Store) Insert(name string, t table.Table) (table.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tables[name]
	s.tables[name] = t
	return old, ok
}

// Get returns the table under name. With kinds given, the table's kind must
// be one of them.
func (s *Store) Get(name string, kinds ...table.Kind) (table.Table, error) {
	s.mu.RLock()
	t, ok := s.tables[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if len(kinds) == 0 {
		return t, nil
	}
	for _, k := range kinds {
		if t.Kind() == k {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is %s, want one of %v", ErrTypeMismatch, name, t.Kind(), kinds)
}

// Delete removes name and returns the removed table.
func (s *Store) Delete(name string) (table.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	delete(s.tables, name)
	return t, ok
}

// Has reports whether a table is stored under name.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok
}

// Names returns the stored names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored tables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}

// SizeBytes sums SizeBytes over all stored tables.
func (s *Store) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tables {
		n += t.SizeBytes()
	}
	return n
}
