// Package sqlite implements a file-backed catalog backend. Entries live in a
// single table with the column list stored as a JSON payload; the write
// lease is an advisory flock on a sidecar file next to the database, which
// also covers writers in other processes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"trendmart/internal/catalog"
)

func init() {
	catalog.Register("sqlite", func(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
		return New(ctx, cfg.DSN)
	})
}

// Store is a SQLite-backed catalog.
type Store struct {
	db       *sql.DB
	lockBase string
}

const bootstrap = `
CREATE TABLE IF NOT EXISTS catalog_entries (
    dataset     TEXT PRIMARY KEY,
    payload     TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);`

// New opens (creating if needed) a SQLite catalog at dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("catalog: sqlite DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, bootstrap); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: sqlite bootstrap: %w", err)
	}

	return &Store{db: db, lockBase: lockBaseFromDSN(dsn)}, nil
}

// lockBaseFromDSN strips the URI prefix and query so lock files land next to
// the database file.
func lockBaseFromDSN(dsn string) string {
	base := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return base
}

func (s *Store) Get(ctx context.Context, dataset string) (catalog.Entry, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM catalog_entries WHERE dataset = ?", dataset,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return catalog.Entry{}, false, nil
	}
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog: sqlite get: %w", err)
	}

	var e catalog.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog: sqlite decode entry %q: %w", dataset, err)
	}
	return e, true, nil
}

func (s *Store) Put(ctx context.Context, e catalog.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("catalog: encode entry %q: %w", e.Dataset, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO catalog_entries (dataset, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(dataset) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		e.Dataset, string(payload), e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("catalog: sqlite put %q: %w", e.Dataset, err)
	}
	return nil
}

func (s *Store) Acquire(ctx context.Context, dataset string) (catalog.Lease, error) {
	return acquireFlock(s.lockBase + "." + dataset + ".lock")
}

func (s *Store) Close() error { return s.db.Close() }
