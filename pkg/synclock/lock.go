// Package synclock provides the process-exclusive lock that guards a sync
// operation end to end, so two invocations of the tool never race on the
// same local store.
package synclock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/nickcecere/convsync/pkg/syncerr"
)

// Lock is a guard holding an exclusive, non-blocking advisory lock on a
// sentinel file. Release is idempotent and safe to defer immediately after
// a successful Acquire.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire tries to take the exclusive lock at path, creating parent
// directories as needed. It does not block: if another process already
// holds the lock, it returns a *syncerr.Error of KindLockBusy.
func Acquire(path string) (*Lock, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, syncerr.New(syncerr.KindFilesystemFailure, "lock.acquire", fmt.Errorf("create lock directory %s: %w", dir, err))
		}
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, syncerr.New(syncerr.KindFilesystemFailure, "lock.acquire", fmt.Errorf("try lock %s: %w", path, err))
	}
	if !ok {
		return nil, syncerr.New(syncerr.KindLockBusy, "lock.acquire", fmt.Errorf(
			"another sync operation is already running; if you're sure no other sync is running, delete the lock file at %s", path))
	}
	return &Lock{fl: fl, path: path}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Path returns the lock file's location, mostly for diagnostics.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// DefaultPath returns the conventional lock file location under the given
// config directory.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "sync.lock")
}
