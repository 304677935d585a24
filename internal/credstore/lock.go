package credstore

import (
	"fmt"
	"os"
	"time"
)

const (
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// fileLocker serializes credential writes across taskflow processes using an
// OS file lock. The lock is released when the process exits.
type fileLocker struct {
	lockPath string
	lockFile *os.File
}

func newFileLocker(path string) *fileLocker {
	return &fileLocker{lockPath: path}
}

// acquire takes the exclusive lock, retrying with capped exponential backoff
// until timeout.
func (l *fileLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff
	for {
		if err := l.tryLock(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("credentials lock timeout after %v (%s)", timeout, l.lockPath)
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

func (l *fileLocker) release() {
	if l.lockFile == nil {
		return
	}
	l.unlock()
	l.lockFile.Close()
	l.lockFile = nil
}

// tryLock and unlock live in lock_unix.go (flock) and lock_windows.go
// (LockFileEx).
