package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrCycleInProgress reports that another process holds the cycle lock.
var ErrCycleInProgress = errors.New("another poll cycle is in progress")

// WithCycleLock runs fn while holding the lock file at path. It does not
// wait: when the lock is held elsewhere it returns ErrCycleInProgress.
func WithCycleLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return ErrCycleInProgress
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
