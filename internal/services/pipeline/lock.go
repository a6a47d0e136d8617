package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// lockFilename inside the state directory.
const lockFilename = "scriba.lock"

// FileRunLock serializes sync runs through an O_EXCL lock file holding the
// owner pid and acquisition time. A lock older than the TTL is presumed
// abandoned by a crashed run and is broken with a warning.
type FileRunLock struct {
	path     string
	ttl      time.Duration
	logger   arbor.ILogger
	acquired bool
}

// NewFileRunLock creates a run lock under the state directory.
func NewFileRunLock(stateDir string, ttl time.Duration, logger arbor.ILogger) (*FileRunLock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FileRunLock{
		path:   filepath.Join(stateDir, lockFilename),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Acquire takes the lock, returning models.ErrLockHeld when a live run
// already holds it.
func (l *FileRunLock) Acquire() error {
	if err := l.tryCreate(); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	// Lock file exists: break it only if stale
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Holder released between our attempts
			if createErr := l.tryCreate(); createErr == nil {
				return nil
			}
			return models.ErrLockHeld
		}
		return fmt.Errorf("failed to stat lock file: %w", err)
	}

	age := time.Since(info.ModTime())
	if age < l.ttl {
		l.logger.Info().
			Str("path", l.path).
			Str("age", age.Round(time.Second).String()).
			Msg("Another run holds the lock")
		return models.ErrLockHeld
	}

	l.logger.Warn().
		Str("path", l.path).
		Str("age", age.Round(time.Second).String()).
		Msg("Breaking stale run lock")

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock: %w", err)
	}

	if err := l.tryCreate(); err != nil {
		if os.IsExist(err) {
			return models.ErrLockHeld
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

func (l *FileRunLock) tryCreate() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	fmt.Fprintf(file, "pid=%d\nacquired=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := file.Close(); err != nil {
		_ = os.Remove(l.path)
		return err
	}

	l.acquired = true
	l.logger.Debug().Str("path", l.path).Msg("Run lock acquired")
	return nil
}

// Release removes the lock file. Releasing a lock never acquired is a no-op.
func (l *FileRunLock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.logger.Debug().Str("path", l.path).Msg("Run lock released")
	return nil
}

// Compile-time interface check
var _ interfaces.RunLock = (*FileRunLock)(nil)
