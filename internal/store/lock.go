package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// Lock is an acquired lock file. The file records the owner so a lock left
// behind by a dead process can be reclaimed.
type Lock struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`

	path   string
	logger *logging.Logger
}

// UnreadableLockAge is how old a lock file that cannot be parsed must be
// before it is treated as stale. A live writer fills the file right after
// creating it, so only a crash leaves it empty or truncated for longer.
const UnreadableLockAge = 5 * time.Second

// AcquireLock creates the lock file at path with O_EXCL. It fails with an
// error matching errors.ErrLocked when a live process holds it. A lock whose
// owner is gone is removed and taken over. logger may be nil.
func AcquireLock(path string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	if existing, err := ReadLock(path); err == nil {
		if isProcessAlive(existing.PID) {
			return nil, errors.NewStoreError(
				fmt.Sprintf("held by PID %d on %s", existing.PID, existing.Hostname), errors.ErrLocked,
			).WithPath(path).WithRetryable(true)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.NewStoreError("failed to remove stale lock", err).WithPath(path)
		}
		logger.Warn("stale lock cleaned", "path", path, "old_pid", existing.PID)
	} else if !os.IsNotExist(err) {
		if err := removeUnreadableLock(path, logger); err != nil {
			return nil, err
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
		path:       path,
		logger:     logger,
	}
	data, err := json.Marshal(lock)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewStoreError("failed to create lock directory", err).WithPath(path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NewStoreError("lock file appeared concurrently", errors.ErrLocked).
				WithPath(path).WithRetryable(true)
		}
		return nil, errors.NewStoreError("failed to create lock file", err).WithPath(path)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return nil, errors.NewStoreError("failed to write lock file", err).WithPath(path)
	}

	logger.Debug("lock acquired", "path", path, "pid", lock.PID)
	return lock, nil
}

// AcquireLockWithRetry retries AcquireLock with exponential backoff while the
// lock is held by someone else, for at most timeout. Errors other than a held
// lock are returned immediately.
func AcquireLockWithRetry(ctx context.Context, path string, timeout time.Duration, logger *logging.Logger) (*Lock, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = timeout

	var lock *Lock
	op := func() error {
		l, err := AcquireLock(path, logger)
		if err != nil {
			if errors.Is(err, errors.ErrLocked) {
				return err
			}
			return backoff.Permanent(err)
		}
		lock = l
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return lock, nil
}

// Release removes the lock file if this process still owns it.
// Safe to call multiple times.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	existing, err := ReadLock(l.path)
	if err != nil || existing.PID != l.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if l.logger != nil {
		l.logger.Debug("lock released", "path", l.path)
	}
	l.path = ""
	return nil
}

// removeUnreadableLock removes a lock file that could not be parsed once it
// is older than UnreadableLockAge. A younger one is reported as held.
func removeUnreadableLock(path string, logger *logging.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewStoreError("failed to stat lock file", err).WithPath(path)
	}
	if age := time.Since(info.ModTime()); age < UnreadableLockAge {
		return errors.NewStoreError("lock file is being written", errors.ErrLocked).
			WithPath(path).WithRetryable(true)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStoreError("failed to remove unreadable lock", err).WithPath(path)
	}
	logger.Warn("unreadable lock cleaned", "path", path, "size", info.Size())
	return nil
}

// ReadLock parses the lock file at path.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.path = path
	return &lock, nil
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
