package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Priority tiers for action items.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Entity categories.
const (
	EntityPerson  = "person"
	EntityProject = "project"
	EntityCompany = "company"
	EntitySystem  = "system"
)

// ActionItem is a unit of work extracted from a meeting note.
// Assignee is always non-empty after post-processing; "unassigned" never
// survives into a persisted note.
type ActionItem struct {
	Task            string   `json:"task" validate:"required"`
	Assignee        string   `json:"assignee" validate:"required"`
	Context         string   `json:"context,omitempty"`
	MentionedBy     string   `json:"mentioned_by,omitempty"`
	DueDate         string   `json:"due_date,omitempty"` // YYYY-MM-DD or empty
	Priority        string   `json:"priority" validate:"required,oneof=high medium low"`
	RelatedEntities []string `json:"related_entities,omitempty"`
}

// Decision is a concrete decision captured from a meeting.
type Decision struct {
	Statement string `json:"decision" validate:"required"`
	Rationale string `json:"rationale,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// Entity is a named thing referenced by a meeting, used for cross-note linking.
type Entity struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required,oneof=person project company system"`
}

// FollowUp is an item that needs future discussion or action.
type FollowUp struct {
	Item   string `json:"item" validate:"required"`
	Owner  string `json:"owner,omitempty"`
	Timing string `json:"timing,omitempty"`
}

// ExtractionResult is the structured output of the stage-1 extraction pass,
// optionally reduced by the stage-2 consolidation pass.
type ExtractionResult struct {
	ActionItems   []ActionItem `json:"action_items" validate:"dive"`
	Decisions     []Decision   `json:"decisions" validate:"dive"`
	Entities      []Entity     `json:"entities" validate:"dive"`
	FollowUps     []FollowUp   `json:"follow_ups,omitempty" validate:"dive"`
	OpenQuestions []string     `json:"open_questions,omitempty"`

	// Consolidated marks a result that has been through stage 2.
	// Consolidating a consolidated result is a no-op.
	Consolidated bool   `json:"consolidated"`
	Model        string `json:"model,omitempty"`
}

var extractionValidator = validator.New()

// Validate checks the result against its schema constraints.
func (r *ExtractionResult) Validate() error {
	return extractionValidator.Struct(r)
}

// Assignees returns the distinct assignees present, in first-seen order.
func (r *ExtractionResult) Assignees() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range r.ActionItems {
		key := strings.ToLower(strings.TrimSpace(item.Assignee))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item.Assignee)
	}
	return out
}

// EntitiesByCategory groups entities preserving input order within a category.
func (r *ExtractionResult) EntitiesByCategory() map[string][]Entity {
	grouped := make(map[string][]Entity)
	for _, e := range r.Entities {
		grouped[e.Category] = append(grouped[e.Category], e)
	}
	return grouped
}

// PriorityRank orders priorities for truncation: high first, low last.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}
