package sqlite

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"trendmart/internal/catalog"
)

// flockLease implements catalog.Lease with an advisory flock on a sidecar
// lock file. flock is per open file description, so the lease holds across
// goroutines and against other processes sharing the same catalog file.
type flockLease struct {
	f    *os.File
	once sync.Once
}

// acquireFlock takes a non-blocking exclusive flock on path. Returns
// catalog.ErrLeaseHeld when another holder has it.
func acquireFlock(path string) (*flockLease, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("catalog: open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, catalog.ErrLeaseHeld
		}
		return nil, fmt.Errorf("catalog: flock %s: %w", path, err)
	}
	return &flockLease{f: f}, nil
}

func (l *flockLease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		err = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
