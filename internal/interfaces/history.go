package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// RunHistoryStorage persists per-run summaries so silent data loss stays
// observable across unattended scheduled runs.
type RunHistoryStorage interface {
	SaveRun(ctx context.Context, summary *models.RunSummary) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}
