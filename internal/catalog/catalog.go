// Package catalog implements the schema catalog: a registry mapping a dataset
// name to its current column list, partition keys, and storage location.
// Query-engine consumers resolve datasets through it, so an entry must never
// be visible in a state inconsistent with what is actually on storage — the
// writer updates the catalog only after all partitions are published, and a
// run holds the dataset's lease for the duration of the publish step.
//
// Backends register themselves by kind (memory, sqlite, postgres), mirroring
// the factory pattern used by the blob store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Column is one column of a published dataset.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "int" | "text" | "bool" | "timestamp"
	Nullable bool   `json:"nullable,omitempty"`
}

// Entry describes one published dataset. Entries are overwritten as a whole
// on every successful write; there is no version history.
type Entry struct {
	Dataset       string    `json:"dataset"`
	Columns       []Column  `json:"columns"`
	PartitionKeys []string  `json:"partition_keys"`
	Location      string    `json:"location"` // blob key prefix, e.g. "trending_joined/"
	UpdatedAt     time.Time `json:"updated_at"`
}

// Lease is the exclusive write lease on one dataset's catalog entry. It must
// be held across partition publish and the final entry update, and released
// when the run ends.
type Lease interface {
	Release(ctx context.Context) error
}

// ErrLeaseHeld is returned by Acquire when another run holds the dataset's
// lease. The caller may retry later; the current run aborts.
var ErrLeaseHeld = errors.New("catalog: dataset lease held by another run")

// Store is the catalog backend interface.
type Store interface {
	// Get returns the current entry for dataset; ok=false when none exists.
	Get(ctx context.Context, dataset string) (Entry, bool, error)
	// Put overwrites the entry for e.Dataset. The caller must hold the lease.
	Put(ctx context.Context, e Entry) error
	// Acquire takes the exclusive write lease for dataset, or ErrLeaseHeld.
	Acquire(ctx context.Context, dataset string) (Lease, error)
	// Close releases backend resources.
	Close() error
}

// Config selects and configures a catalog backend.
type Config struct {
	Kind string // registered backend kind
	DSN  string // backend-specific: file path (sqlite), pool DSN (postgres)
}

// Factory constructs a Store from Config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a backend factory for the given kind.
// Backends call this from init().
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New constructs the Store for cfg.Kind, or an error naming the known kinds.
func New(ctx context.Context, cfg Config) (Store, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("catalog: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return fn(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// CheckCompatible reports whether replacing old with new would leave already
// published partitions unreadable. Removing a column, changing a column's
// type, or changing the partition keys is a hard error; adding nullable
// columns is allowed. Automatic migration is deliberately out of scope.
func CheckCompatible(old, new Entry) error {
	if len(old.PartitionKeys) != len(new.PartitionKeys) {
		return fmt.Errorf("catalog: partition keys changed from %v to %v", old.PartitionKeys, new.PartitionKeys)
	}
	for i, k := range old.PartitionKeys {
		if new.PartitionKeys[i] != k {
			return fmt.Errorf("catalog: partition keys changed from %v to %v", old.PartitionKeys, new.PartitionKeys)
		}
	}

	oldCols := make(map[string]Column, len(old.Columns))
	for _, c := range old.Columns {
		oldCols[c.Name] = c
	}
	newCols := make(map[string]Column, len(new.Columns))
	for _, c := range new.Columns {
		newCols[c.Name] = c
	}
	for _, oc := range old.Columns {
		nc, ok := newCols[oc.Name]
		if !ok {
			return fmt.Errorf("catalog: column %q removed; existing partitions would be unreadable", oc.Name)
		}
		if nc.Type != oc.Type {
			return fmt.Errorf("catalog: column %q changed type %s -> %s; existing partitions would be unreadable",
				oc.Name, oc.Type, nc.Type)
		}
	}
	// Added columns must be nullable: partitions from earlier runs carry no
	// value for them and would be unreadable under a non-nullable schema.
	for _, nc := range new.Columns {
		if _, ok := oldCols[nc.Name]; !ok && !nc.Nullable {
			return fmt.Errorf("catalog: column %q added as non-nullable; existing partitions would be unreadable", nc.Name)
		}
	}
	return nil
}
