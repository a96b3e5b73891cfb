// Package scratch guards the engine's temporary directory so that two
// processes sharing it run one after the other.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/covergate/internal/application"
)

// LockFile is the name of the lock file created in the scratch directory.
const LockFile = ".covergate.lock"

// Locker implements application.ScratchLocker with an exclusive file lock.
// Lock blocks until the directory is free.
type Locker struct {
	Logger *slog.Logger
}

// fileLock represents a held lock; platform specific parts live in
// lock_unix.go and lock_windows.go.
type fileLock struct {
	file *os.File
}

func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := l.release()
	l.file = nil
	return err
}

func (l Locker) Lock(dir string) (application.Unlocker, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	lockPath := filepath.Join(dir, LockFile)
	// #nosec G304 -- path is the configured scratch directory
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	acquired, err := tryLock(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if !acquired {
		logger.Info("waiting for another covergate run to release the scratch directory", slog.String("dir", dir))
		if err := lock(file); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	logger.Debug("scratch directory locked", slog.String("lock", lockPath))
	return &fileLock{file: file}, nil
}
