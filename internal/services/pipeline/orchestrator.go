package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/converter"
)

// RunOptions selects the mode and bounds of a single pipeline invocation.
type RunOptions struct {
	Mode          string // models.RunModeSync, RunModeBackfill, or RunModeDocument
	BackfillDays  int    // Window for backfill mode
	DocID         string // Target for document mode
	MaxIterations int    // Caps documents processed this run; 0 means unlimited
	DryRun        bool   // Fetch and convert but never write or advance the checkpoint
	Enrich        bool   // Run LLM extraction after the basic write
}

// Orchestrator drives the pipeline: fetch, convert, write, enrich, advance
// the checkpoint. Failures in one document never abort the batch; only a
// fetch that prevents the batch from starting is fatal.
type Orchestrator struct {
	config       *common.Config
	fetcher      interfaces.DocumentFetcher
	converter    *converter.Service
	writer       interfaces.NoteWriter
	extractor    interfaces.Extractor
	consolidator interfaces.Consolidator
	checkpoints  interfaces.CheckpointStore
	lock         interfaces.RunLock
	history      interfaces.RunHistoryStorage
	logger       arbor.ILogger
}

// NewOrchestrator wires the pipeline together. extractor and consolidator
// may be nil when enrichment is disabled; history may be nil when run
// summaries are not persisted.
func NewOrchestrator(
	config *common.Config,
	fetcher interfaces.DocumentFetcher,
	conv *converter.Service,
	writer interfaces.NoteWriter,
	extractor interfaces.Extractor,
	consolidator interfaces.Consolidator,
	checkpoints interfaces.CheckpointStore,
	lock interfaces.RunLock,
	history interfaces.RunHistoryStorage,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:       config,
		fetcher:      fetcher,
		converter:    conv,
		writer:       writer,
		extractor:    extractor,
		consolidator: consolidator,
		checkpoints:  checkpoints,
		lock:         lock,
		history:      history,
		logger:       logger,
	}
}

// Run executes one pipeline invocation and returns its summary.
// Returns models.ErrLockHeld without touching any state when another run
// is in progress.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*models.RunSummary, error) {
	if err := o.lock.Acquire(); err != nil {
		if errors.Is(err, models.ErrLockHeld) {
			o.logger.Info().Msg("Another sync run is in progress, exiting")
		}
		return nil, err
	}
	defer func() {
		if err := o.lock.Release(); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	summary := &models.RunSummary{
		ID:        common.NewRunID(),
		Mode:      opts.Mode,
		StartedAt: time.Now(),
	}

	o.logger.Info().
		Str("run_id", summary.ID).
		Str("mode", opts.Mode).
		Bool("dry_run", opts.DryRun).
		Bool("enrich", opts.Enrich).
		Msg("Starting pipeline run")

	var runErr error
	switch opts.Mode {
	case models.RunModeDocument:
		runErr = o.runDocument(ctx, opts, summary)
	case models.RunModeBackfill:
		runErr = o.runBatch(ctx, opts, summary, time.Now().AddDate(0, 0, -opts.BackfillDays), false)
	default:
		runErr = o.runSync(ctx, opts, summary)
	}

	summary.FinishedAt = time.Now()
	o.logSummary(summary)
	o.saveSummary(ctx, summary)

	return summary, runErr
}

// runSync processes documents newer than the checkpoint, advancing it as
// documents complete.
func (o *Orchestrator) runSync(ctx context.Context, opts RunOptions, summary *models.RunSummary) error {
	cp, err := o.checkpoints.Load(ctx)
	if err != nil {
		summary.RecordError(fmt.Sprintf("checkpoint load failed: %v", err))
		return err
	}

	since := cp.LastSynced
	if cp.IsZero() {
		days := o.config.Sync.FirstRunWindowDays
		if days <= 0 {
			days = 7
		}
		since = time.Now().AddDate(0, 0, -days)
		o.logger.Info().
			Int("days", days).
			Msg("First run, fetching recent window")
	}

	return o.runBatch(ctx, opts, summary, since, true)
}

// runBatch fetches a window and processes each document. advanceCheckpoint
// is true only for sync mode; backfill relies on dedup instead.
func (o *Orchestrator) runBatch(ctx context.Context, opts RunOptions, summary *models.RunSummary, since time.Time, advanceCheckpoint bool) error {
	docs, err := o.fetcher.FetchSince(ctx, since, o.config.API.FetchLimit)
	if err != nil {
		// The batch never started; this is the one fatal fetch path
		summary.RecordError(fmt.Sprintf("fetch failed: %v", err))
		return err
	}
	summary.Fetched = len(docs)

	if len(docs) == 0 {
		o.logger.Info().Msg("No new documents to process")
		return nil
	}

	cp, _ := o.checkpoints.Load(ctx)

	processed := 0
	for i := range docs {
		if opts.MaxIterations > 0 && processed >= opts.MaxIterations {
			o.logger.Info().
				Int("max_iterations", opts.MaxIterations).
				Msg("Iteration cap reached, stopping batch")
			break
		}
		if ctx.Err() != nil {
			summary.RecordError("run cancelled")
			break
		}

		doc := &docs[i]
		done := o.processDocument(ctx, doc, opts, summary)
		processed++

		// The checkpoint moves past a document only once it is Done, so an
		// interrupted run re-fetches it and dedup handles the rest
		if done && advanceCheckpoint && !opts.DryRun {
			cp = cp.Advance(doc.ID, doc.CreatedAt)
			if err := o.checkpoints.Save(ctx, cp); err != nil {
				o.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to save checkpoint")
				summary.RecordError(fmt.Sprintf("checkpoint save failed after %s: %v", doc.ID, err))
			}
		}
	}

	return nil
}

// runDocument processes exactly one document by id, without touching the
// checkpoint.
func (o *Orchestrator) runDocument(ctx context.Context, opts RunOptions, summary *models.RunSummary) error {
	doc, err := o.fetcher.FetchByID(ctx, opts.DocID)
	if err != nil {
		summary.RecordError(fmt.Sprintf("document %s: %v", opts.DocID, err))
		return err
	}

	summary.Fetched = 1
	o.processDocument(ctx, doc, opts, summary)
	return nil
}

// processDocument walks one document through the per-document state
// machine. Returns true when the document reached Done (including the
// skipped path); false means a failure that should hold the checkpoint.
func (o *Orchestrator) processDocument(ctx context.Context, doc *models.Document, opts RunOptions, summary *models.RunSummary) bool {
	state := models.StateFetched

	if !doc.ValidMeeting {
		o.logger.Info().
			Str("document_id", doc.ID).
			Str("title", doc.Title).
			Msg("Skipping document not flagged as a valid meeting")
		summary.Skipped++
		return true
	}

	markdown := o.converter.Convert(doc)
	state = models.StateConverted

	meta := models.NoteMeta{
		SourceID:        doc.ID,
		Title:           doc.Title,
		CreatedAt:       doc.CreatedAt,
		Attendees:       doc.Attendees,
		Creator:         doc.Creator,
		DurationMinutes: doc.DurationMinutes,
	}

	if opts.DryRun {
		o.logger.Info().
			Str("document_id", doc.ID).
			Int("markdown_length", len(markdown)).
			Msg("Dry run, skipping write")
		summary.Skipped++
		return true
	}

	result, err := o.writer.WriteBasic(meta, markdown)
	if err != nil {
		o.logger.Error().
			Err(err).
			Str("document_id", doc.ID).
			Str("state", string(state)).
			Msg("Failed to write note")
		summary.Failed++
		summary.RecordError(fmt.Sprintf("write failed for %s: %v", doc.ID, err))
		return false
	}

	if result.Outcome == models.OutcomeSkipped {
		summary.Skipped++
		return true
	}

	summary.Created++

	if !opts.Enrich || o.extractor == nil {
		return true
	}

	o.enrichDocument(ctx, doc, meta, markdown, result.Path, summary)
	return true
}

// enrichDocument runs the two LLM stages and rewrites the note. Every
// failure here is non-fatal: the basic note stays as the final artifact.
func (o *Orchestrator) enrichDocument(ctx context.Context, doc *models.Document, meta models.NoteMeta, markdown, path string, summary *models.RunSummary) {
	extraction, err := o.extractor.Extract(ctx, markdown, meta)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("document_id", doc.ID).
			Str("state", string(models.StateExtractionFailed)).
			Msg("Extraction failed, basic note retained")
		return
	}

	if o.consolidator != nil {
		consolidated, consErr := o.consolidator.Consolidate(ctx, extraction, meta)
		if consErr != nil {
			// Non-fatal: the consolidator already fell back to a bounded list
			o.logger.Warn().
				Err(consErr).
				Str("document_id", doc.ID).
				Msg("Consolidation degraded to truncated list")
			summary.RecordError(fmt.Sprintf("consolidation degraded for %s: %v", doc.ID, consErr))
		}
		if consolidated != nil {
			extraction = consolidated
		}
	}

	if _, err := o.writer.WriteEnriched(path, meta, markdown, extraction); err != nil {
		o.logger.Warn().
			Err(err).
			Str("document_id", doc.ID).
			Msg("Enriched rewrite failed, basic note retained")
		summary.RecordError(fmt.Sprintf("enriched write failed for %s: %v", doc.ID, err))
		return
	}

	summary.Enriched++
}

func (o *Orchestrator) logSummary(summary *models.RunSummary) {
	o.logger.Info().
		Str("run_id", summary.ID).
		Str("mode", summary.Mode).
		Int("fetched", summary.Fetched).
		Int("created", summary.Created).
		Int("enriched", summary.Enriched).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Str("duration", summary.Duration().Round(time.Millisecond).String()).
		Msg("Pipeline run complete")

	for _, msg := range summary.Errors {
		o.logger.Warn().Str("run_id", summary.ID).Msg(msg)
	}
}

func (o *Orchestrator) saveSummary(ctx context.Context, summary *models.RunSummary) {
	if o.history == nil {
		return
	}
	if err := o.history.SaveRun(ctx, summary); err != nil {
		o.logger.Warn().Err(err).Str("run_id", summary.ID).Msg("Failed to persist run summary")
	}
}
