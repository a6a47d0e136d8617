package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/converter"
	"github.com/ternarybob/scriba/internal/services/vault"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// stubFetcher serves a fixed document list.
type stubFetcher struct {
	docs []models.Document
	err  error
}

func (f *stubFetcher) FetchSince(ctx context.Context, since time.Time, limit int) ([]models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *stubFetcher) FetchByID(ctx context.Context, id string) (*models.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, models.ErrDocumentNotFound
}

// stubExtractor returns a fixed result or error.
type stubExtractor struct {
	result *models.ExtractionResult
	err    error
	calls  int
}

func (e *stubExtractor) Extract(ctx context.Context, text string, meta models.NoteMeta) (*models.ExtractionResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := *e.result
	return &out, nil
}

// passthroughConsolidator marks results consolidated without an LLM.
type passthroughConsolidator struct{}

func (c *passthroughConsolidator) Consolidate(ctx context.Context, result *models.ExtractionResult, meta models.NoteMeta) (*models.ExtractionResult, error) {
	return result, nil
}

// stubLock is an in-memory run lock.
type stubLock struct {
	held     bool
	acquired int
}

func (l *stubLock) Acquire() error {
	if l.held {
		return models.ErrLockHeld
	}
	l.held = true
	l.acquired++
	return nil
}

func (l *stubLock) Release() error {
	l.held = false
	return nil
}

func testDoc(id string, createdAt time.Time) models.Document {
	return models.Document{
		ID:           id,
		Title:        "Meeting " + id,
		CreatedAt:    createdAt,
		Attendees:    []string{"Jane Smith"},
		Creator:      "Jane Smith",
		ValidMeeting: true,
		Content: &models.ContentNode{
			Type: "doc",
			Content: []models.ContentNode{
				{Type: "paragraph", Content: []models.ContentNode{{Type: "text", Text: "Notes for " + id}}},
			},
		},
	}
}

type testEnv struct {
	orch        *Orchestrator
	writer      *vault.Writer
	checkpoints *MemoryCheckpointStore
	lock        *stubLock
	fetcher     *stubFetcher
	extractor   *stubExtractor
}

func newTestEnv(t *testing.T, docs []models.Document, extractor *stubExtractor) *testEnv {
	t.Helper()
	logger := createTestLogger()

	writer, err := vault.NewWriter(t.TempDir(), "Meetings", logger)
	require.NoError(t, err)

	config := common.NewDefaultConfig()
	fetcher := &stubFetcher{docs: docs}
	checkpoints := NewMemoryCheckpointStore()
	lock := &stubLock{}

	var ext interfaces.Extractor
	var cons interfaces.Consolidator
	if extractor != nil {
		ext = extractor
		cons = &passthroughConsolidator{}
	}

	orch := NewOrchestrator(config, fetcher, converter.NewService(logger), writer, ext, cons, checkpoints, lock, nil, logger)

	return &testEnv{
		orch:        orch,
		writer:      writer,
		checkpoints: checkpoints,
		lock:        lock,
		fetcher:     fetcher,
		extractor:   extractor,
	}
}

func countNotes(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count
}

func TestRun_SyncCreatesNotesAndAdvancesCheckpoint(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{
		testDoc("doc-1", base),
		testDoc("doc-2", base.Add(time.Hour)),
	}
	env := newTestEnv(t, docs, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, countNotes(t, env.writer.Dir()))

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "doc-2", cp.LastDocID)
	assert.True(t, cp.LastSynced.Equal(base.Add(time.Hour)))

	// Lock was released
	assert.False(t, env.lock.held)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{testDoc("doc-1", base)}
	env := newTestEnv(t, docs, nil)

	first, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	// Fetcher returns the same window again; dedup skips everything
	second, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, countNotes(t, env.writer.Dir()))
}

func TestRun_ExtractionFailureRetainsBasicNote(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{testDoc("doc-1", base)}
	ext := &stubExtractor{err: &models.ExtractionError{Kind: models.LLMTimeout, Err: fmt.Errorf("deadline exceeded")}}
	env := newTestEnv(t, docs, ext)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync, Enrich: true})
	require.NoError(t, err)

	// The basic note exists and the checkpoint still advanced
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Enriched)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, countNotes(t, env.writer.Dir()))
	assert.Equal(t, 1, ext.calls)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "doc-1", cp.LastDocID)
}

func TestRun_EnrichmentRewritesNote(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{testDoc("doc-1", base)}
	ext := &stubExtractor{result: &models.ExtractionResult{
		ActionItems: []models.ActionItem{{Task: "Ship it", Assignee: "Jane Smith", Priority: models.PriorityHigh}},
		Model:       "stub-model",
	}}
	env := newTestEnv(t, docs, ext)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync, Enrich: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Enriched)

	entries, err := os.ReadDir(env.writer.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(env.writer.Dir() + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Action Items")
	assert.Contains(t, string(data), "llm_enriched: true")
}

func TestRun_LockHeld(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.lock.held = true

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	assert.ErrorIs(t, err, models.ErrLockHeld)
	assert.Nil(t, summary)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{testDoc("doc-1", base)}
	env := newTestEnv(t, docs, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, countNotes(t, env.writer.Dir()))

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.IsZero())
}

func TestRun_InvalidMeetingSkipped(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	doc := testDoc("doc-1", base)
	doc.ValidMeeting = false
	env := newTestEnv(t, []models.Document{doc}, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, countNotes(t, env.writer.Dir()))

	// A skipped document still moves the checkpoint past it
	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "doc-1", cp.LastDocID)
}

func TestRun_MaxIterationsCapsBatch(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{
		testDoc("doc-1", base),
		testDoc("doc-2", base.Add(time.Hour)),
		testDoc("doc-3", base.Add(2*time.Hour)),
	}
	env := newTestEnv(t, docs, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync, MaxIterations: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)

	// Checkpoint stops at the last processed document so the next run
	// picks up doc-3
	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "doc-2", cp.LastDocID)
}

func TestRun_BackfillDoesNotAdvanceCheckpoint(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{testDoc("doc-1", base)}
	env := newTestEnv(t, docs, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeBackfill, BackfillDays: 30})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.IsZero())
}

func TestRun_DocumentMode(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	docs := []models.Document{
		testDoc("doc-1", base),
		testDoc("doc-2", base.Add(time.Hour)),
	}
	env := newTestEnv(t, docs, nil)

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeDocument, DocID: "doc-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, countNotes(t, env.writer.Dir()))

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.IsZero())
}

func TestRun_DocumentModeNotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	_, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeDocument, DocID: "missing"})
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.err = models.NewTransientFetchError(fmt.Errorf("connection reset"))

	summary, err := env.orch.Run(context.Background(), RunOptions{Mode: models.RunModeSync})
	require.Error(t, err)
	assert.True(t, models.IsTransientError(err))
	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.Errors)
}
