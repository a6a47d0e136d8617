package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

// buildExtractionPrompt builds the stage-1 prompt asking for a structured
// JSON extraction of the meeting notes.
func buildExtractionPrompt(markdown string, meta models.NoteMeta) string {
	attendees := "Unknown"
	if len(meta.Attendees) > 0 {
		attendees = strings.Join(meta.Attendees, ", ")
	}

	date := "Unknown date"
	if !meta.CreatedAt.IsZero() {
		date = meta.CreatedAt.Format("2006-01-02")
	}

	return fmt.Sprintf(`You are analyzing meeting notes to extract actionable information. Extract the following from this meeting:

# Meeting Context
- **Title**: %s
- **Date**: %s
- **Attendees**: %s

# Meeting Notes
%s

---

# Your Task
Extract structured data from these meeting notes and return ONLY valid JSON (no markdown, no code blocks, just raw JSON).

## JSON Schema
{
  "action_items": [
    {
      "task": "Clear description of the action item",
      "assignee": "Person's name or 'unassigned'",
      "context": "Why this needs to be done, any dependencies",
      "mentioned_by": "Who suggested or assigned this",
      "due_date": "YYYY-MM-DD or null if not mentioned",
      "priority": "high|medium|low",
      "related_entities": ["Project names", "Issue IDs like ISA-234", "Other people mentioned"]
    }
  ],
  "decisions": [
    {
      "decision": "What was decided",
      "rationale": "Why this decision was made",
      "owner": "Person responsible for the decision"
    }
  ],
  "entities": {
    "people": ["Names of people mentioned (beyond attendees)"],
    "projects": ["Project names or abbreviations"],
    "companies": ["External companies mentioned"],
    "systems": ["Technologies, tools, or systems discussed"]
  },
  "follow_ups": [
    {
      "item": "What needs follow-up",
      "owner": "Who should follow up",
      "timing": "When (e.g., 'next meeting', 'before Friday')"
    }
  ],
  "open_questions": [
    "Questions that were raised but not answered"
  ]
}

## Extraction Guidelines

1. **Action Items**:
   - Only extract EXPLICIT action items, not implied tasks
   - Look for phrases like "needs to", "should", "will", "assigned to", "action item"
   - Include context and dependencies
   - Assignee should be a specific person's name, or "unassigned"
   - If someone says "I'll do X", that person is the assignee

2. **Decisions**:
   - Extract concrete decisions made during the meeting
   - Capture the reasoning/rationale
   - Identify who made or owns the decision

3. **Entities**:
   - Extract people mentioned (not just attendees)
   - Project names and abbreviations
   - External companies or partners
   - Technologies, tools, systems mentioned

4. **Follow-ups & Questions**:
   - Items that need future action or discussion
   - Unanswered questions raised in the meeting

## Important
- Return ONLY the JSON object, no markdown formatting, no code blocks
- Use null for missing/unknown values
- Empty arrays [] for no items
- Be conservative: don't invent information not in the notes
- Preserve exact names and terminology from the notes

Return the JSON now:`, meta.Title, date, attendees, markdown)
}

// buildConsolidationPrompt builds the stage-2 prompt that merges an
// oversized action-item list. Decisions are passed along as context so the
// model can drop items that merely restate a decision.
func buildConsolidationPrompt(result *models.ExtractionResult, meta models.NoteMeta, threshold int) string {
	actionsJSON, _ := json.MarshalIndent(result.ActionItems, "", "  ")
	decisionsJSON, _ := json.MarshalIndent(result.Decisions, "", "  ")

	return fmt.Sprintf(`You are reviewing extracted action items from a meeting to consolidate and refine them.

# Meeting: %s

# Extracted Action Items (Initial Pass)
%s

# Extracted Decisions (for context)
%s

# Task
Review the action items and consolidate them. Return a refined list that:

1. **Removes duplicates** - If multiple items describe the same work, merge them
2. **Removes decision details** - If an item is just implementing a decision, either:
   - Remove it if it's covered by a broader implementation task
   - Keep it if it's a standalone work item
3. **Groups related items** - Combine small related tasks into logical work items
4. **Preserves critical items** - Keep distinct work items that are truly separate

**Guidelines**:
- Target: at most %d high-quality action items
- Each action should be a distinct work item requiring effort
- Preserve assignees, priorities, due dates, and context
- Every merged item must keep a named assignee
- Don't lose important details - just consolidate redundant ones

Return the consolidated action items as a JSON array of objects with keys:
task, assignee, context, mentioned_by, due_date, priority, related_entities.

Return ONLY the JSON array, no other text.`, meta.Title, actionsJSON, decisionsJSON, threshold)
}
