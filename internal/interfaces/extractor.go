package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// Extractor is the stage-1 high-recall extraction pass over a note's text.
type Extractor interface {
	// Extract sends the converted note text to the LLM and parses the
	// structured reply. Fails with *models.ExtractionError; non-fatal to
	// the pipeline (the basic note is retained).
	Extract(ctx context.Context, text string, meta models.NoteMeta) (*models.ExtractionResult, error)
}

// Consolidator is the stage-2 merge pass, applied only when stage 1
// overflows the action-item threshold. Consolidation is a fixpoint:
// consolidating an already-consolidated result returns it unchanged.
type Consolidator interface {
	Consolidate(ctx context.Context, result *models.ExtractionResult, meta models.NoteMeta) (*models.ExtractionResult, error)
}
