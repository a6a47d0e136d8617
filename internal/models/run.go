package models

import "time"

// Run modes.
const (
	RunModeSync     = "sync"
	RunModeBackfill = "backfill"
	RunModeDocument = "document"
)

// DocumentState tracks a document through the per-document state machine.
type DocumentState string

const (
	StateFetched           DocumentState = "fetched"
	StateConverted         DocumentState = "converted"
	StateBasicWritten      DocumentState = "basic_written"
	StateExtractionAttempt DocumentState = "extraction_attempted"
	StateEnrichedWritten   DocumentState = "enriched_written"
	StateExtractionFailed  DocumentState = "extraction_failed"
	StateBasicRetained     DocumentState = "basic_retained"
	StateDone              DocumentState = "done"
	StateFailed            DocumentState = "failed"
)

// RunSummary is the per-run outcome record: logged at the end of a run and
// persisted to the run-history store.
type RunSummary struct {
	ID         string    `json:"id" badgerhold:"key"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Fetched  int `json:"fetched"`
	Created  int `json:"created"`
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`

	Errors []string `json:"errors,omitempty"`
}

// Duration returns the elapsed run time.
func (r *RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordError appends a per-document error to the summary.
func (r *RunSummary) RecordError(msg string) {
	r.Errors = append(r.Errors, msg)
}
