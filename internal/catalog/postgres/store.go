// Package postgres implements a server-backed catalog backend using pgx v5.
// The write lease is a session-scoped advisory lock held on a dedicated
// pooled connection; pg_try_advisory_lock maps contention directly onto
// catalog.ErrLeaseHeld without blocking.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/xxh3"

	"trendmart/internal/catalog"
)

func init() {
	catalog.Register("postgres", func(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
		return New(ctx, cfg.DSN)
	})
}

// Store is a Postgres-backed catalog.
type Store struct {
	pool *pgxpool.Pool
}

const bootstrap = `
CREATE TABLE IF NOT EXISTS catalog_entries (
    dataset     text PRIMARY KEY,
    payload     jsonb NOT NULL,
    updated_at  timestamptz NOT NULL
)`

// New connects to dsn and bootstraps the catalog table.
func New(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("catalog: postgres DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: pgxpool: %w", err)
	}
	if _, err := pool.Exec(ctx, bootstrap); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: postgres bootstrap: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, dataset string) (catalog.Entry, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		"SELECT payload FROM catalog_entries WHERE dataset = $1", dataset,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return catalog.Entry{}, false, nil
	}
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog: postgres get: %w", err)
	}

	var e catalog.Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return catalog.Entry{}, false, fmt.Errorf("catalog: postgres decode entry %q: %w", dataset, err)
	}
	return e, true, nil
}

func (s *Store) Put(ctx context.Context, e catalog.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("catalog: encode entry %q: %w", e.Dataset, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO catalog_entries (dataset, payload, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (dataset) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		e.Dataset, payload, e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("catalog: postgres put %q: %w", e.Dataset, err)
	}
	return nil
}

// lockKey derives a stable 64-bit advisory lock key from the dataset name.
func lockKey(dataset string) int64 {
	return int64(xxh3.HashString("trendmart:catalog:" + dataset))
}

func (s *Store) Acquire(ctx context.Context, dataset string) (catalog.Lease, error) {
	// The advisory lock is session-scoped, so the lease must pin one
	// connection for its whole lifetime.
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquire conn: %w", err)
	}

	key := lockKey(dataset)
	var got bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&got); err != nil {
		conn.Release()
		return nil, fmt.Errorf("catalog: advisory lock: %w", err)
	}
	if !got {
		conn.Release()
		return nil, catalog.ErrLeaseHeld
	}
	return &lease{conn: conn, key: key}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type lease struct {
	conn *pgxpool.Conn
	key  int64
	once sync.Once
}

func (l *lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		unlockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err = l.conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", l.key)
		l.conn.Release()
	})
	return err
}
