// Package memory implements an in-process catalog backend for tests and
// local runs.
package memory

import (
	"context"
	"sync"

	"trendmart/internal/catalog"
)

func init() {
	catalog.Register("memory", func(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
		return New(), nil
	})
}

// Store keeps entries and leases in process memory.
type Store struct {
	mu      sync.Mutex
	entries map[string]catalog.Entry
	leases  map[string]bool
}

// New returns an empty in-memory catalog.
func New() *Store {
	return &Store{
		entries: make(map[string]catalog.Entry),
		leases:  make(map[string]bool),
	}
}

func (m *Store) Get(ctx context.Context, dataset string) (catalog.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[dataset]
	return e, ok, nil
}

func (m *Store) Put(ctx context.Context, e catalog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Dataset] = e
	return nil
}

func (m *Store) Acquire(ctx context.Context, dataset string) (catalog.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leases[dataset] {
		return nil, catalog.ErrLeaseHeld
	}
	m.leases[dataset] = true
	return &lease{store: m, dataset: dataset}, nil
}

func (m *Store) Close() error { return nil }

type lease struct {
	store   *Store
	dataset string
	once    sync.Once
}

func (l *lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.store.mu.Lock()
		delete(l.store.leases, l.dataset)
		l.store.mu.Unlock()
	})
	return nil
}
