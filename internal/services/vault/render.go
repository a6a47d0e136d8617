package vault

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

// Priority markers for rendered action items.
var priorityMarkers = map[string]string{
	models.PriorityHigh:   "🔺",
	models.PriorityMedium: "⏹",
	models.PriorityLow:    "🔽",
}

// renderBasicBody builds the body of a non-enriched note: title, meeting
// header, and the converted text under a Notes section.
func renderBasicBody(meta models.NoteMeta, markdown string) string {
	var sb strings.Builder

	sb.WriteString("# " + meta.Title + "\n\n")
	sb.WriteString(renderHeader(meta))
	sb.WriteString("\n\n## Notes\n\n")
	sb.WriteString(markdown)
	sb.WriteString("\n")

	return sb.String()
}

// renderEnrichedBody builds the body of an enriched note. Extracted
// sections precede the original text; empty sections are omitted.
func renderEnrichedBody(meta models.NoteMeta, markdown string, extraction *models.ExtractionResult) string {
	var sb strings.Builder

	sb.WriteString("# " + meta.Title + "\n\n")
	sb.WriteString(renderHeader(meta))
	sb.WriteString("\n")

	if len(extraction.ActionItems) > 0 {
		sb.WriteString("\n## Action Items\n")
		renderActionItems(&sb, extraction)
	}

	if len(extraction.Decisions) > 0 {
		sb.WriteString("\n## Decisions\n")
		for _, d := range extraction.Decisions {
			sb.WriteString("\n### " + d.Statement + "\n")
			if d.Rationale != "" {
				sb.WriteString("**Rationale**: " + d.Rationale + "\n")
			}
			if d.Owner != "" {
				sb.WriteString("**Owner**: " + wikilink(d.Owner) + "\n")
			}
		}
	}

	if len(extraction.Entities) > 0 {
		sb.WriteString("\n## Entities Referenced\n\n")
		renderEntities(&sb, extraction)
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString(markdown)
	sb.WriteString("\n")

	if len(extraction.FollowUps) > 0 {
		sb.WriteString("\n## Follow-ups\n\n")
		for _, f := range extraction.FollowUps {
			owner := f.Owner
			if owner == "" {
				owner = "unassigned"
			}
			line := fmt.Sprintf("- **@%s**: %s", owner, f.Item)
			if f.Timing != "" {
				line += " (" + f.Timing + ")"
			}
			sb.WriteString(line + "\n")
		}
	}

	if len(extraction.OpenQuestions) > 0 {
		sb.WriteString("\n## Open Questions\n\n")
		for _, q := range extraction.OpenQuestions {
			sb.WriteString("- " + q + "\n")
		}
	}

	return sb.String()
}

// renderHeader builds the line under the title with date, duration, and
// attendee links.
func renderHeader(meta models.NoteMeta) string {
	dateFormatted := "Date unknown"
	if !meta.CreatedAt.IsZero() {
		dateFormatted = meta.CreatedAt.Format("Monday, January 2, 2006 at 03:04 PM")
	}

	durationStr := "Duration unknown"
	if meta.DurationMinutes > 0 {
		durationStr = fmt.Sprintf("%d minutes", meta.DurationMinutes)
	}

	attendeeLinks := "_No attendees recorded_"
	if len(meta.Attendees) > 0 {
		links := make([]string, 0, len(meta.Attendees))
		for _, attendee := range meta.Attendees {
			links = append(links, wikilink(NormalizeAttendeeName(attendee)))
		}
		attendeeLinks = strings.Join(links, ", ")
	}

	return fmt.Sprintf("**%s** · %s  \n**Attendees**: %s", dateFormatted, durationStr, attendeeLinks)
}

// renderActionItems groups items under one heading per assignee, assignees
// in first-seen order, items in extraction order within a group.
func renderActionItems(sb *strings.Builder, extraction *models.ExtractionResult) {
	for _, assignee := range extraction.Assignees() {
		sb.WriteString("\n### @" + assignee + "\n")

		for _, item := range extraction.ActionItems {
			if !strings.EqualFold(item.Assignee, assignee) {
				continue
			}

			line := "- [ ] " + item.Task
			if marker, ok := priorityMarkers[item.Priority]; ok {
				line += " " + marker
			}
			if item.DueDate != "" {
				line += " 📅 " + item.DueDate
			}
			sb.WriteString(line + "\n")

			if item.Context != "" {
				sb.WriteString("  - **Context**: " + item.Context + "\n")
			}
			if item.MentionedBy != "" {
				sb.WriteString("  - **Mentioned by**: " + item.MentionedBy + "\n")
			}
			if len(item.RelatedEntities) > 0 {
				links := make([]string, 0, len(item.RelatedEntities))
				for _, entity := range item.RelatedEntities {
					links = append(links, wikilink(entity))
				}
				sb.WriteString("  - **Related**: " + strings.Join(links, ", ") + "\n")
			}
		}
	}
}

// renderEntities writes one line per category present, in fixed order.
func renderEntities(sb *strings.Builder, extraction *models.ExtractionResult) {
	grouped := extraction.EntitiesByCategory()

	categories := []struct {
		key   string
		label string
	}{
		{models.EntityPerson, "People"},
		{models.EntityProject, "Projects"},
		{models.EntityCompany, "Companies"},
		{models.EntitySystem, "Systems"},
	}

	for _, category := range categories {
		entities := grouped[category.key]
		if len(entities) == 0 {
			continue
		}
		links := make([]string, 0, len(entities))
		for _, e := range entities {
			links = append(links, wikilink(e.Name))
		}
		sb.WriteString("**" + category.label + "**: " + strings.Join(links, ", ") + "\n")
	}
}
