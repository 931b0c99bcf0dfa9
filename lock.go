// PID-file locking for cross-process write exclusion.
//
// An object file is locked by creating a "lock" file in its directory that
// holds the owner's process id. The file is created with O_EXCL so two
// processes racing to lock cannot both succeed. A lock left behind by a
// process that has exited is stale: it is removed and acquisition is retried
// once. The lock only excludes processes that follow the same protocol; the
// OS does not enforce it.
//
// The lock state lives on the ObjectFile handle, not in the process, so two
// handles on the same object file in one process exclude each other too.
package sky

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

const lockFileName = "lock"

// fileLock is the lock state of one handle: Unlocked or LockedBySelf.
type fileLock struct {
	path  string
	pid   int
	alive func(pid int) bool // liveness probe, replaceable in tests
	held  bool
	log   *slog.Logger
}

func newFileLock(path string, log *slog.Logger) *fileLock {
	return &fileLock{
		path:  path,
		pid:   os.Getpid(),
		alive: processAlive,
		log:   log,
	}
}

// Acquire takes the lock or fails with ErrLockConflict if a live process
// holds it. It never waits.
func (l *fileLock) Acquire() error {
	if l.held {
		return nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create()
		if err == nil {
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("%w: create lock: %w", ErrIO, err)
		}

		owner, err := l.owner()
		if os.IsNotExist(err) {
			continue // released between our create and read
		}
		if err != nil {
			return err
		}
		if l.alive(owner) {
			return fmt.Errorf("%w: held by pid %d", ErrLockConflict, owner)
		}

		l.log.Info("removing stale lock", "path", l.path, "pid", owner)
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove stale lock: %w", ErrIO, err)
		}
	}
	return fmt.Errorf("%w: lost race for %s", ErrLockConflict, l.path)
}

// Release removes the lock file after checking it still names this
// process. Releasing a lock that is not held, or whose file was removed or
// rewritten, is ErrLockViolation.
func (l *fileLock) Release() error {
	if !l.held {
		return fmt.Errorf("%w: release without acquire", ErrLockViolation)
	}

	owner, err := l.owner()
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: lock file removed by another process", ErrLockViolation)
	}
	if err != nil {
		return err
	}
	if owner != l.pid {
		return fmt.Errorf("%w: lock file names pid %d, expected %d", ErrLockViolation, owner, l.pid)
	}

	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("%w: remove lock: %w", ErrIO, err)
	}
	l.held = false
	return nil
}

func (l *fileLock) create() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(strconv.Itoa(l.pid) + "\n")
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(l.path)
		return fmt.Errorf("write lock: %w", werr)
	}
	return nil
}

// owner reads the pid stored in the lock file. Not-exist errors are
// returned unwrapped so callers can test them with os.IsNotExist. A file
// that does not hold a pid may be mid-write by its creator, so it is
// reported as a conflict rather than removed.
func (l *fileLock) owner() (int, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read lock: %w", ErrIO, err)
	}
	pid, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: unreadable lock file %s", ErrLockConflict, l.path)
	}
	return pid, nil
}
