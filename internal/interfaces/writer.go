package interfaces

import "github.com/ternarybob/scriba/internal/models"

// NoteWriter persists notes into the vault with dedup and atomic writes.
type NoteWriter interface {
	// WriteBasic writes the unenriched note. Returns OutcomeSkipped when a
	// note embedding the same source id already exists in the vault.
	WriteBasic(meta models.NoteMeta, markdown string) (models.WriteResult, error)

	// WriteEnriched atomically replaces the note at path (relative to the
	// vault root) with the enriched rendering.
	WriteEnriched(path string, meta models.NoteMeta, markdown string, extraction *models.ExtractionResult) (models.WriteResult, error)
}
