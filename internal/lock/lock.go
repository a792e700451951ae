package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	gderrors "github.com/klevermonicker/gitdance/internal/errors"
)

// Locker guards a working copy against concurrent gitdance runs. Two
// processes painting the same repository would interleave commits and
// pushes, so each run holds an exclusive flock on a per-repository lock
// file for its whole lifetime.
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
	acquired bool
}

// New creates a Locker keyed by the repository path. The lock file name
// is derived from a hash of the path so distinct working copies never
// contend with each other.
func New(repoPath string) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, gderrors.NewLockError("", 0,
			gderrors.Wrap(gderrors.ErrLockAcquisitionFailure,
				"gitdance currently only supports Unix-like operating systems (Linux, macOS, BSD)"))
	}

	repoHash := fmt.Sprintf("%x", sha256.Sum256([]byte(repoPath)))[:16]
	return &Locker{
		lockFile: filepath.Join(os.TempDir(), fmt.Sprintf("gitdance-%s.lock", repoHash)),
		pid:      os.Getpid(),
	}, nil
}

// Acquire takes the lock, recovering stale lock files left behind by
// crashed runs. Returns ErrAlreadyRunning (wrapped in a LockError) when
// a live process holds it.
func (l *Locker) Acquire() error {
	err := l.createAndLock()
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		return l.acquireExisting()
	}
	return err
}

// createAndLock atomically creates the lock file and flocks it. An
// existing file surfaces as an os.IsExist error so the caller can fall
// back to acquireExisting.
func (l *Locker) createAndLock() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		if os.IsExist(err) {
			return err
		}
		return gderrors.NewLockError(l.lockFile, 0,
			gderrors.Wrap(err, "failed to create lock file"))
	}

	if err = l.flock(); err != nil {
		l.closeFd()
		return gderrors.NewLockError(l.lockFile, 0,
			gderrors.Wrap(err, "failed to acquire lock on newly created lock file"))
	}

	return l.claim()
}

// acquireExisting flocks a lock file that is already on disk. A blocked
// flock means another process holds it; if that process is gone the
// lock is stale and gets removed and retaken.
func (l *Locker) acquireExisting() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0666)
	if err != nil {
		return gderrors.NewLockError(l.lockFile, 0,
			gderrors.Wrap(err, "failed to open existing lock file"))
	}

	if err = l.flock(); err != nil {
		l.closeFd()

		// Older Unix systems report EWOULDBLOCK and EAGAIN as distinct
		// codes; treat them the same.
		if gderrors.Is(err, syscall.EWOULDBLOCK) || gderrors.Is(err, syscall.EAGAIN) {
			return l.handleBlocked()
		}

		return gderrors.NewLockError(l.lockFile, 0,
			gderrors.Wrap(err, "failed to acquire lock"))
	}

	if err = l.lockFd.Truncate(0); err != nil {
		defer l.closeFd()
		return gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(err, "failed to truncate lock file"))
	}

	return l.claim()
}

// handleBlocked inspects a lock held elsewhere. The owning PID is read
// from the lock file; a dead owner means a stale lock we can break.
func (l *Locker) handleBlocked() error {
	otherPid, pidErr := l.readOwnerPid()
	if pidErr != nil {
		return gderrors.NewLockError(l.lockFile, 0,
			gderrors.Wrap(pidErr, "another gitdance instance is running, but couldn't identify its PID"))
	}

	if isProcessRunning(otherPid) {
		return gderrors.NewLockError(l.lockFile, otherPid, gderrors.ErrAlreadyRunning)
	}

	// Stale lock: remove it and race any other waiter for a fresh one.
	if err := os.Remove(l.lockFile); err != nil {
		return gderrors.NewLockError(l.lockFile, otherPid,
			gderrors.Wrap(err, fmt.Sprintf("found stale lock file from PID %d, but failed to remove it", otherPid)))
	}

	if err := l.createAndLock(); err != nil {
		if os.IsExist(err) {
			return gderrors.NewLockError(l.lockFile, 0,
				gderrors.Wrap(err, "another gitdance instance took the lock immediately after we removed the stale lock"))
		}
		return err
	}
	return nil
}

// claim records our PID in the held lock file and marks it acquired.
func (l *Locker) claim() error {
	if _, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		wrapped := gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(err, "failed to write PID to lock file"))
		if releaseErr := l.Release(); releaseErr != nil {
			return gderrors.Wrap(wrapped, fmt.Sprintf("also failed to release lock: %v", releaseErr))
		}
		return wrapped
	}

	l.acquired = true
	return nil
}

func (l *Locker) flock() error {
	return syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func (l *Locker) closeFd() {
	if l.lockFd != nil {
		_ = l.lockFd.Close()
		l.lockFd = nil
	}
}

// readOwnerPid reads and parses the PID from the lock file
func (l *Locker) readOwnerPid() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, gderrors.Wrap(err, "failed to read lock file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, gderrors.Wrap(err, "invalid PID in lock file")
	}
	return pid, nil
}

// isProcessRunning checks if a process exists using signal 0
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Release unlocks, closes, and removes the lock file. Safe to call more
// than once; a Locker that never acquired the lock releases as a no-op.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error

	// Verify the descriptor is still usable before unlocking. A
	// descriptor can look valid after the file was tampered with
	// underneath us.
	fd := int(l.lockFd.Fd())
	var stat syscall.Stat_t
	if statErr := syscall.Fstat(fd, &stat); statErr != nil {
		err = gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(statErr, "failed to stat lock file - file descriptor is invalid"))
	} else if _, writeErr := l.lockFd.WriteAt([]byte{}, 0); writeErr != nil {
		err = gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(writeErr, "failed to write to lock file - file descriptor is invalid"))
	} else if flockErr := syscall.Flock(fd, syscall.LOCK_UN); flockErr != nil {
		err = gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(flockErr, "failed to release lock"))
	}

	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(closeErr, "failed to close lock file"))
	}

	l.lockFd = nil
	l.acquired = false

	// Remove the file regardless of earlier errors so the next run
	// starts clean.
	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = gderrors.NewLockError(l.lockFile, l.pid,
			gderrors.Wrap(removeErr, "failed to remove lock file"))
	}

	return err
}
