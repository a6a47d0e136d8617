package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/models"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func testMeta(sourceID, title string) models.NoteMeta {
	return models.NoteMeta{
		SourceID:        sourceID,
		Title:           title,
		CreatedAt:       time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		Attendees:       []string{"Jane Smith <jane@example.com>", "john.doe@example.com"},
		Creator:         "Jane Smith",
		DurationMinutes: 45,
	}
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(t.TempDir(), "Meetings", createTestLogger())
	require.NoError(t, err)
	return w
}

func TestWriteBasic_CreatesNote(t *testing.T) {
	w := newTestWriter(t)
	meta := testMeta("doc-abc-123", "Roadmap Review")

	result, err := w.WriteBasic(meta, "Discussed the roadmap.")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, result.Outcome)
	assert.Equal(t, filepath.Join(w.Dir(), "2026-03-10 - Roadmap Review.md"), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "---\n"))
	assert.Contains(t, content, "source_id: doc-abc-123")
	assert.Contains(t, content, "meeting: Roadmap Review")
	assert.Contains(t, content, "source: notes-api")
	assert.Contains(t, content, "duration: 45 min")
	assert.Contains(t, content, "[[Jane Smith]]")
	assert.Contains(t, content, "[[John Doe]]")
	assert.Contains(t, content, "## Notes")
	assert.Contains(t, content, "Discussed the roadmap.")
	assert.NotContains(t, content, "llm_enriched")
}

func TestWriteBasic_FrontmatterKeyOrder(t *testing.T) {
	w := newTestWriter(t)
	result, err := w.WriteBasic(testMeta("doc-1", "Ordering"), "body")
	require.NoError(t, err)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)

	keys := []string{"date:", "time:", "meeting:", "source:", "source_id:", "type:", "status:", "attendees:", "duration:"}
	last := -1
	for _, key := range keys {
		idx := strings.Index(string(data), key)
		require.GreaterOrEqual(t, idx, 0, "missing frontmatter key %s", key)
		assert.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
}

func TestWriteBasic_SkipsExistingSourceID(t *testing.T) {
	w := newTestWriter(t)
	meta := testMeta("doc-dup", "First Title")

	first, err := w.WriteBasic(meta, "original")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, first.Outcome)

	// Same document again, even with a changed title, is skipped
	meta.Title = "Renamed Title"
	second, err := w.WriteBasic(meta, "changed")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, second.Outcome)
	assert.Equal(t, first.Path, second.Path)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "original")
}

func TestWriteBasic_FilenameCollision(t *testing.T) {
	w := newTestWriter(t)

	first, err := w.WriteBasic(testMeta("doc-aaaa1111", "Standup"), "one")
	require.NoError(t, err)

	// Different document, same date and title
	second, err := w.WriteBasic(testMeta("doc-bbbb2222", "Standup"), "two")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeCreated, second.Outcome)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Contains(t, second.Path, "(doc-bbbb)")

	// Both notes survive
	_, err = os.Stat(first.Path)
	assert.NoError(t, err)
	_, err = os.Stat(second.Path)
	assert.NoError(t, err)
}

func TestWriteBasic_IgnoresForeignNotes(t *testing.T) {
	w := newTestWriter(t)

	// A hand-written note without frontmatter must not break scanning
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "personal.md"), []byte("# My own note\n"), 0644))

	result, err := w.WriteBasic(testMeta("doc-x", "Planning"), "body")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, result.Outcome)
}

func TestWriteEnriched_ReplacesNote(t *testing.T) {
	w := newTestWriter(t)
	meta := testMeta("doc-enrich", "Sprint Planning")

	basic, err := w.WriteBasic(meta, "Sprint notes.")
	require.NoError(t, err)

	extraction := &models.ExtractionResult{
		ActionItems: []models.ActionItem{
			{Task: "Ship beta", Assignee: "Jane Smith", Priority: models.PriorityHigh, DueDate: "2026-03-14", Context: "Blocked on QA"},
			{Task: "Write docs", Assignee: "John Doe", Priority: models.PriorityLow},
		},
		Decisions: []models.Decision{
			{Statement: "Adopt weekly releases", Rationale: "Faster feedback", Owner: "Jane Smith"},
		},
		Entities: []models.Entity{
			{Name: "Jane Smith", Category: models.EntityPerson},
			{Name: "Atlas", Category: models.EntityProject},
		},
		FollowUps:     []models.FollowUp{{Item: "Review hiring plan", Owner: "Jane Smith", Timing: "next week"}},
		OpenQuestions: []string{"Do we need a staging environment?"},
		Model:         "claude-haiku-3-5-20241022",
	}

	result, err := w.WriteEnriched(basic.Path, meta, "Sprint notes.", extraction)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, result.Outcome)

	data, err := os.ReadFile(basic.Path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "llm_enriched: true")
	assert.Contains(t, content, "llm_model: claude-haiku-3-5-20241022")
	assert.Contains(t, content, "## Action Items")
	assert.Contains(t, content, "### @Jane Smith")
	assert.Contains(t, content, "- [ ] Ship beta 🔺 📅 2026-03-14")
	assert.Contains(t, content, "  - **Context**: Blocked on QA")
	assert.Contains(t, content, "### @John Doe")
	assert.Contains(t, content, "- [ ] Write docs 🔽")
	assert.Contains(t, content, "## Decisions")
	assert.Contains(t, content, "### Adopt weekly releases")
	assert.Contains(t, content, "**Rationale**: Faster feedback")
	assert.Contains(t, content, "**Owner**: [[Jane Smith]]")
	assert.Contains(t, content, "## Entities Referenced")
	assert.Contains(t, content, "**People**: [[Jane Smith]]")
	assert.Contains(t, content, "**Projects**: [[Atlas]]")
	assert.Contains(t, content, "## Follow-ups")
	assert.Contains(t, content, "- **@Jane Smith**: Review hiring plan (next week)")
	assert.Contains(t, content, "## Open Questions")
	assert.Contains(t, content, "- Do we need a staging environment?")
	assert.Contains(t, content, "Sprint notes.")

	// Section order: action items before decisions before entities before notes
	assert.Less(t, strings.Index(content, "## Action Items"), strings.Index(content, "## Decisions"))
	assert.Less(t, strings.Index(content, "## Decisions"), strings.Index(content, "## Entities Referenced"))
	assert.Less(t, strings.Index(content, "## Entities Referenced"), strings.Index(content, "## Notes"))
	assert.Less(t, strings.Index(content, "## Notes"), strings.Index(content, "## Follow-ups"))
}

func TestWriteAtomic_FailureLeavesNoPartialFile(t *testing.T) {
	w := newTestWriter(t)
	meta := testMeta("doc-atomic", "Atomicity")

	w.beforeRename = func() error {
		return fmt.Errorf("disk pulled")
	}

	_, err := w.WriteBasic(meta, "body")
	require.Error(t, err)

	var writeErr *models.WriteError
	require.ErrorAs(t, err, &writeErr)

	// Neither the destination nor the temp file remains
	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomic_FailureDuringEnrichKeepsBasicNote(t *testing.T) {
	w := newTestWriter(t)
	meta := testMeta("doc-keep", "Keep Basic")

	basic, err := w.WriteBasic(meta, "basic body")
	require.NoError(t, err)

	w.beforeRename = func() error {
		return fmt.Errorf("disk pulled")
	}

	extraction := &models.ExtractionResult{
		ActionItems: []models.ActionItem{{Task: "t", Assignee: "a", Priority: models.PriorityMedium}},
	}
	_, err = w.WriteEnriched(basic.Path, meta, "basic body", extraction)
	require.Error(t, err)

	// The basic note is intact
	data, readErr := os.ReadFile(basic.Path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "basic body")
	assert.NotContains(t, string(data), "llm_enriched")
}

func TestNoteFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain title", "Roadmap Review", "2026-03-10 - Roadmap Review.md"},
		{"unsafe characters stripped", `Q1: Plan/Review <draft>!`, "2026-03-10 - Q1 PlanReview draft.md"},
		{"whitespace collapsed", "Too   many    spaces", "2026-03-10 - Too many spaces.md"},
		{"empty title", "", "2026-03-10 - Untitled Meeting.md"},
		{"punctuation only", "???", "2026-03-10 - Untitled Meeting.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := testMeta("id", tt.title)
			assert.Equal(t, tt.want, noteFilename(meta))
		})
	}
}

func TestSanitizeTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := sanitizeTitle(long)
	assert.Len(t, got, 100)

	// Multibyte titles are cut on rune boundaries
	multibyte := strings.Repeat("é", 150)
	got = sanitizeTitle(multibyte)
	assert.Equal(t, 100, len([]rune(got)))
}

func TestNormalizeAttendeeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"name with email", "Jane Smith <jane@example.com>", "Jane Smith"},
		{"bare email dotted", "john.doe@example.com", "John Doe"},
		{"bare email underscored", "mary_jones@example.com", "Mary Jones"},
		{"plain name", "Alex Chen", "Alex Chen"},
		{"extra whitespace", "  Sam Park  ", "Sam Park"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAttendeeName(tt.in))
		})
	}
}
