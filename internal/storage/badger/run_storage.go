package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// RunStorage persists pipeline run summaries for the -history command.
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunHistoryStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun stores a completed run summary keyed by its run id.
func (s *RunStorage) SaveRun(ctx context.Context, summary *models.RunSummary) error {
	if err := s.db.Store().Upsert(summary.ID, summary); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}

	s.logger.Debug().Str("run_id", summary.ID).Msg("Run summary saved")
	return nil
}

// ListRuns returns the most recent run summaries, newest first.
func (s *RunStorage) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	var runs []models.RunSummary

	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list run summaries: %w", err)
	}

	return runs, nil
}
