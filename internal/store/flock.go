package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteLock is a cross-process advisory lock guarding an index_dir's
// on-disk stores so a second engine instance pointed at the same
// index_dir cannot interleave writes with the Dual-Store Writer's
// single-writer permit (spec §5: the in-process permit only orders
// goroutines within one process).
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriteLock creates a lock for indexDir, backed by a
// "<indexDir>/.write.lock" file.
func NewWriteLock(indexDir string) *WriteLock {
	lockPath := filepath.Join(indexDir, ".write.lock")
	return &WriteLock{path: lockPath, flock: flock.New(lockPath)}
}

// TryLock attempts to acquire the lock without blocking, returning
// false if another process already holds it.
func (l *WriteLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create write lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire write lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock; safe to call when not held.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release write lock: %w", err)
	}
	l.locked = false
	return nil
}

// IsLocked reports whether this instance currently holds the lock.
func (l *WriteLock) IsLocked() bool {
	return l.locked
}
