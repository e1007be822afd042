package changeset

import (
	"errors"
	"fmt"
	"os"

	"github.com/kilnforge/changeforge/internal/procutil"
)

// ErrLocked is returned by AcquireLock when the lockfile already exists and
// is not eligible for automatic recovery.
var ErrLocked = errors.New("changeset: lockfile already held")

// AcquireLock creates changes/.locks/<id> exclusively, failing if it already
// exists (spec.md §3, §4.3). If breakStale is true and the existing lock's
// recorded pid is not alive, the stale lock is removed and acquisition is
// retried once — the SPEC_FULL.md resolution of the lock-orphaning open
// question. Automatic breaking is never silent: it only runs when the
// caller opts in.
func AcquireLock(repoRoot, id string, lock LockFile, breakStale bool) error {
	path := lockPath(repoRoot, id)

	if err := tryCreateLock(path, lock); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return err
	}

	if !breakStale {
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}

	var existing LockFile
	if readErr := readJSONFile(path, &existing); readErr != nil {
		return fmt.Errorf("changeset: read existing lock %s: %w", path, readErr)
	}
	if existing.Pid > 0 && procutil.PIDAlive(existing.Pid) {
		return fmt.Errorf("%w: owning pid %d is still alive", ErrLocked, existing.Pid)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("changeset: remove stale lock %s: %w", path, err)
	}
	return tryCreateLock(path, lock)
}

func tryCreateLock(path string, lock LockFile) error {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	b, err := encodeLock(lock)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}

// ReleaseLock removes changes/.locks/<id>. Called on every exit path from
// the executor, per spec.md §3.
func ReleaseLock(repoRoot, id string) error {
	err := os.Remove(lockPath(repoRoot, id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// LockExists reports whether a lockfile for id is currently present.
func LockExists(repoRoot, id string) bool {
	_, err := os.Stat(lockPath(repoRoot, id))
	return err == nil
}
