package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// checkpointFilename inside the state directory.
const checkpointFilename = "checkpoint.toml"

// FileCheckpointStore persists the sync checkpoint as a TOML file.
// Saves go through a temp file and rename so a crash mid-save leaves the
// previous checkpoint intact, and backward movement is refused so a
// re-fetch can never lose ground.
type FileCheckpointStore struct {
	path   string
	logger arbor.ILogger
}

// NewFileCheckpointStore creates a checkpoint store under the state directory.
func NewFileCheckpointStore(stateDir string, logger arbor.ILogger) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	return &FileCheckpointStore{
		path:   filepath.Join(stateDir, checkpointFilename),
		logger: logger,
	}, nil
}

// Load reads the checkpoint. A missing file is a zero checkpoint, which
// callers interpret as a first run.
func (s *FileCheckpointStore) Load(ctx context.Context) (models.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info().Str("path", s.path).Msg("No checkpoint found, first run")
			return models.Checkpoint{}, nil
		}
		return models.Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp models.Checkpoint
	if err := toml.Unmarshal(data, &cp); err != nil {
		return models.Checkpoint{}, fmt.Errorf("failed to parse checkpoint %s: %w", s.path, err)
	}

	return cp, nil
}

// Save atomically writes the checkpoint. A save that would move last_synced
// backward is a logged no-op.
func (s *FileCheckpointStore) Save(ctx context.Context, cp models.Checkpoint) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if !current.IsZero() && cp.LastSynced.Before(current.LastSynced) {
		s.logger.Warn().
			Str("current", current.LastSynced.Format("2006-01-02T15:04:05Z07:00")).
			Str("attempted", cp.LastSynced.Format("2006-01-02T15:04:05Z07:00")).
			Msg("Refusing to move checkpoint backward")
		return nil
	}

	data, err := toml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	success = true

	s.logger.Debug().
		Str("last_synced", cp.LastSynced.Format("2006-01-02T15:04:05Z07:00")).
		Str("last_doc_id", cp.LastDocID).
		Msg("Checkpoint saved")

	return nil
}

// MemoryCheckpointStore keeps the checkpoint in memory. Used in tests and
// dry runs where the checkpoint must not persist.
type MemoryCheckpointStore struct {
	mu sync.Mutex
	cp models.Checkpoint
}

// NewMemoryCheckpointStore creates an empty in-memory checkpoint store
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{}
}

// Load returns the stored checkpoint
func (s *MemoryCheckpointStore) Load(ctx context.Context) (models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp, nil
}

// Save stores the checkpoint, refusing backward movement.
func (s *MemoryCheckpointStore) Save(ctx context.Context, cp models.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cp.IsZero() && cp.LastSynced.Before(s.cp.LastSynced) {
		return nil
	}
	s.cp = cp
	return nil
}

// Compile-time interface checks
var (
	_ interfaces.CheckpointStore = (*FileCheckpointStore)(nil)
	_ interfaces.CheckpointStore = (*MemoryCheckpointStore)(nil)
)
