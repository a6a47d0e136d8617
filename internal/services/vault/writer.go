package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Writer persists meeting notes into the vault. The source_id frontmatter
// key is the sole dedup key: a document whose id already exists in the
// vault is skipped, so repeated runs over the same window are idempotent.
type Writer struct {
	dir    string
	logger arbor.ILogger

	// beforeRename runs between temp-file write and rename. Test hook for
	// simulating failure at the atomicity boundary.
	beforeRename func() error
}

// NewWriter creates a note writer rooted at vaultPath/subdir, creating the
// directory if needed.
func NewWriter(vaultPath, subdir string, logger arbor.ILogger) (*Writer, error) {
	if vaultPath == "" {
		return nil, fmt.Errorf("vault path is required")
	}

	dir := filepath.Join(vaultPath, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create meetings directory %s: %w", dir, err)
	}

	logger.Debug().Str("dir", dir).Msg("Note writer initialized")

	return &Writer{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir returns the meetings directory the writer manages.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteBasic persists a non-enriched note. Returns OutcomeSkipped with the
// existing path when the document's source_id is already in the vault.
// Name collisions between distinct documents get a short-id suffix.
func (w *Writer) WriteBasic(meta models.NoteMeta, markdown string) (models.WriteResult, error) {
	index, err := w.scanSourceIDs()
	if err != nil {
		return models.WriteResult{}, &models.WriteError{Path: w.dir, Err: err}
	}

	if existing, ok := index[meta.SourceID]; ok {
		w.logger.Info().
			Str("source_id", meta.SourceID).
			Str("path", existing).
			Msg("Note already exists, skipping")
		return models.WriteResult{Outcome: models.OutcomeSkipped, Path: existing}, nil
	}

	path := filepath.Join(w.dir, noteFilename(meta))
	if _, statErr := os.Stat(path); statErr == nil {
		// Same date and title as a different document
		path = w.collisionPath(meta)
		w.logger.Warn().
			Str("source_id", meta.SourceID).
			Str("path", path).
			Msg("Filename collision, using suffixed name")
	}

	content, err := w.renderNote(meta, markdown, nil, "")
	if err != nil {
		return models.WriteResult{}, &models.WriteError{Path: path, Err: err}
	}

	if err := w.writeAtomic(path, content); err != nil {
		return models.WriteResult{}, err
	}

	w.logger.Info().
		Str("source_id", meta.SourceID).
		Str("path", path).
		Msg("Created meeting note")

	return models.WriteResult{Outcome: models.OutcomeCreated, Path: path}, nil
}

// WriteEnriched atomically replaces a previously written basic note with
// its enriched form. Readers of the vault see either the complete basic
// note or the complete enriched note, never a partial file.
func (w *Writer) WriteEnriched(path string, meta models.NoteMeta, markdown string, extraction *models.ExtractionResult) (models.WriteResult, error) {
	content, err := w.renderNote(meta, markdown, extraction, extraction.Model)
	if err != nil {
		return models.WriteResult{}, &models.WriteError{Path: path, Err: err}
	}

	if err := w.writeAtomic(path, content); err != nil {
		return models.WriteResult{}, err
	}

	w.logger.Info().
		Str("source_id", meta.SourceID).
		Str("path", path).
		Int("action_items", len(extraction.ActionItems)).
		Msg("Enriched meeting note")

	return models.WriteResult{Outcome: models.OutcomeUpdated, Path: path}, nil
}

// renderNote combines frontmatter and body. A nil extraction renders the
// basic form.
func (w *Writer) renderNote(meta models.NoteMeta, markdown string, extraction *models.ExtractionResult, model string) (string, error) {
	fm, err := renderFrontmatter(meta, model)
	if err != nil {
		return "", err
	}

	if extraction == nil {
		return fm + "\n" + renderBasicBody(meta, markdown), nil
	}
	return fm + "\n" + renderEnrichedBody(meta, markdown, extraction), nil
}

// collisionPath appends a short document id to the filename.
func (w *Writer) collisionPath(meta models.NoteMeta) string {
	name := noteFilename(meta)
	base := strings.TrimSuffix(name, ".md")
	return filepath.Join(w.dir, fmt.Sprintf("%s (%s).md", base, shortID(meta.SourceID)))
}

// writeAtomic writes content through a temp file in the same directory and
// renames it into place. The note is never observable half-written.
func (w *Writer) writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(w.dir, ".scriba-*.tmp")
	if err != nil {
		return &models.WriteError{Path: path, Err: fmt.Errorf("create temp: %w", err)}
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return &models.WriteError{Path: path, Err: fmt.Errorf("write temp: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return &models.WriteError{Path: path, Err: fmt.Errorf("fsync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &models.WriteError{Path: path, Err: fmt.Errorf("close temp: %w", err)}
	}

	if w.beforeRename != nil {
		if err := w.beforeRename(); err != nil {
			return &models.WriteError{Path: path, Err: err}
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return &models.WriteError{Path: path, Err: fmt.Errorf("rename: %w", err)}
	}
	success = true
	return nil
}

// Compile-time interface check
var _ interfaces.NoteWriter = (*Writer)(nil)
