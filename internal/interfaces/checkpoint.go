package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// CheckpointStore persists the sync checkpoint. Implementations must make
// Save atomic: a reader never observes a partially written checkpoint.
type CheckpointStore interface {
	// Load returns the current checkpoint. A zero checkpoint (IsZero)
	// means no sync has completed yet.
	Load(ctx context.Context) (models.Checkpoint, error)

	// Save atomically replaces the checkpoint. Implementations reject
	// backward movement; saving an older checkpoint is a no-op.
	Save(ctx context.Context, cp models.Checkpoint) error
}

// RunLock serializes pipeline runs. A run that cannot acquire the lock
// exits immediately without touching the checkpoint.
type RunLock interface {
	// Acquire takes the lock, returning models.ErrLockHeld when another
	// live run holds it.
	Acquire() error

	// Release drops the lock. Safe to call on every exit path.
	Release() error
}
