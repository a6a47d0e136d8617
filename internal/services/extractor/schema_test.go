package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scriba/internal/models"
)

const sampleReply = `{
  "action_items": [
    {"task": "Ship the beta", "assignee": "Jane", "priority": "high", "due_date": "2026-03-14", "context": "Blocked on QA", "mentioned_by": "Bob", "related_entities": ["Atlas"]},
    {"task": "Write docs", "assignee": "Bob", "priority": "URGENT", "due_date": "null"}
  ],
  "decisions": [
    {"decision": "Adopt weekly releases", "rationale": "Faster feedback", "owner": "Jane"}
  ],
  "entities": {
    "people": ["Jane", "Bob"],
    "projects": ["Atlas"],
    "companies": [],
    "systems": ["Jenkins"]
  },
  "follow_ups": [
    {"item": "Review hiring plan", "owner": "Jane", "timing": "next week"},
    {"item": "   ", "owner": "Bob"}
  ],
  "open_questions": ["Do we need staging?"]
}`

func TestParseExtractionReply_Full(t *testing.T) {
	result, err := parseExtractionReply(sampleReply)
	require.NoError(t, err)

	require.Len(t, result.ActionItems, 2)
	assert.Equal(t, "Ship the beta", result.ActionItems[0].Task)
	assert.Equal(t, "Jane", result.ActionItems[0].Assignee)
	assert.Equal(t, models.PriorityHigh, result.ActionItems[0].Priority)
	assert.Equal(t, "2026-03-14", result.ActionItems[0].DueDate)
	assert.Equal(t, []string{"Atlas"}, result.ActionItems[0].RelatedEntities)

	// Unknown priority normalizes to medium, literal "null" due date clears
	assert.Equal(t, models.PriorityMedium, result.ActionItems[1].Priority)
	assert.Equal(t, "", result.ActionItems[1].DueDate)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "Adopt weekly releases", result.Decisions[0].Statement)

	// Entity groups flatten into categorized entities
	require.Len(t, result.Entities, 4)
	assert.Equal(t, models.Entity{Name: "Jane", Category: models.EntityPerson}, result.Entities[0])
	assert.Equal(t, models.Entity{Name: "Atlas", Category: models.EntityProject}, result.Entities[2])
	assert.Equal(t, models.Entity{Name: "Jenkins", Category: models.EntitySystem}, result.Entities[3])

	// Blank follow-up items are dropped
	require.Len(t, result.FollowUps, 1)
	assert.Equal(t, "Review hiring plan", result.FollowUps[0].Item)

	assert.Equal(t, []string{"Do we need staging?"}, result.OpenQuestions)
	assert.False(t, result.Consolidated)
}

func TestParseExtractionReply_MarkdownFences(t *testing.T) {
	fenced := "```json\n" + sampleReply + "\n```"
	result, err := parseExtractionReply(fenced)
	require.NoError(t, err)
	assert.Len(t, result.ActionItems, 2)
}

func TestParseExtractionReply_TrailingProse(t *testing.T) {
	noisy := sampleReply + "\n\nI hope this extraction is helpful!"
	result, err := parseExtractionReply(noisy)
	require.NoError(t, err)
	assert.Len(t, result.ActionItems, 2)
}

func TestParseExtractionReply_Empty(t *testing.T) {
	result, err := parseExtractionReply(`{"action_items": [], "decisions": [], "entities": {}, "follow_ups": [], "open_questions": []}`)
	require.NoError(t, err)
	assert.Empty(t, result.ActionItems)
	assert.Empty(t, result.Decisions)
	assert.NotNil(t, result.Entities)
	assert.NotNil(t, result.OpenQuestions)
}

func TestParseExtractionReply_Garbage(t *testing.T) {
	_, err := parseExtractionReply("Sorry, I cannot extract anything from this note.")
	assert.Error(t, err)
}

func TestParseActionItemsReply_BareArray(t *testing.T) {
	items, err := parseActionItemsReply("```json\n[{\"task\": \"merged task\", \"assignee\": \"Jane\", \"priority\": \"high\"}]\n```")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "merged task", items[0].Task)
}

func TestCleanMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownFences(tt.in))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"trailing prose", `{"a": 1} extra words`, `{"a": 1}`, true},
		{"leading prose", `Here you go: {"a": 1}`, `{"a": 1}`, true},
		{"array with prose", `[1, 2, 3] done`, `[1, 2, 3]`, true},
		{"brace inside string", `{"a": "b}c"} tail`, `{"a": "b}c"}`, true},
		{"never balanced", `{"a": 1`, "", false},
		{"no json at all", `nothing here`, "", false},
		{"empty", ``, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := repairJSON(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
