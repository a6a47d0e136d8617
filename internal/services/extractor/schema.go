package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

// extractionReply mirrors the JSON shape the model is asked to return for
// stage 1. Entity groups are flattened into categorized models.Entity
// values during conversion.
type extractionReply struct {
	ActionItems   []actionItemReply `json:"action_items"`
	Decisions     []decisionReply   `json:"decisions"`
	Entities      entitiesReply     `json:"entities"`
	FollowUps     []followUpReply   `json:"follow_ups"`
	OpenQuestions []string          `json:"open_questions"`
}

type actionItemReply struct {
	Task            string   `json:"task"`
	Assignee        string   `json:"assignee"`
	Context         string   `json:"context"`
	MentionedBy     string   `json:"mentioned_by"`
	DueDate         string   `json:"due_date"`
	Priority        string   `json:"priority"`
	RelatedEntities []string `json:"related_entities"`
}

type decisionReply struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale"`
	Owner     string `json:"owner"`
}

type entitiesReply struct {
	People    []string `json:"people"`
	Projects  []string `json:"projects"`
	Companies []string `json:"companies"`
	Systems   []string `json:"systems"`
}

type followUpReply struct {
	Item   string `json:"item"`
	Owner  string `json:"owner"`
	Timing string `json:"timing"`
}

// cleanMarkdownFences removes markdown code fences from a model response
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	fencePattern := regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// repairJSON trims a response to its last balanced top-level structure.
// Models occasionally append prose after the JSON or get cut off mid
// object; trimming to the last position where braces balance recovers the
// usable prefix.
func repairJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	open := s[0]
	var closer byte
	switch open {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		// Find the first structural opener
		idx := strings.IndexAny(s, "{[")
		if idx < 0 {
			return "", false
		}
		return repairJSON(s[idx:])
	}

	depth := 0
	inString := false
	escaped := false
	lastBalanced := -1

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				lastBalanced = i
			}
		}
	}

	if lastBalanced < 0 {
		return "", false
	}

	return s[:lastBalanced+1], true
}

// parseExtractionReply decodes a stage-1 model response into an
// ExtractionResult. Fences are stripped first; a decode failure triggers
// one repair attempt before giving up.
func parseExtractionReply(response string) (*models.ExtractionResult, error) {
	cleaned := cleanMarkdownFences(response)

	var reply extractionReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		repaired, ok := repairJSON(cleaned)
		if !ok {
			return nil, fmt.Errorf("malformed extraction reply: %w", err)
		}
		if repairErr := json.Unmarshal([]byte(repaired), &reply); repairErr != nil {
			return nil, fmt.Errorf("malformed extraction reply after repair: %w", repairErr)
		}
	}

	return reply.toResult(), nil
}

// parseActionItemsReply decodes a stage-2 response, which is a bare array
// of action items rather than a full extraction object.
func parseActionItemsReply(response string) ([]models.ActionItem, error) {
	cleaned := cleanMarkdownFences(response)

	var replies []actionItemReply
	if err := json.Unmarshal([]byte(cleaned), &replies); err != nil {
		repaired, ok := repairJSON(cleaned)
		if !ok {
			return nil, fmt.Errorf("malformed consolidation reply: %w", err)
		}
		if repairErr := json.Unmarshal([]byte(repaired), &replies); repairErr != nil {
			return nil, fmt.Errorf("malformed consolidation reply after repair: %w", repairErr)
		}
	}

	items := make([]models.ActionItem, 0, len(replies))
	for _, r := range replies {
		items = append(items, r.toActionItem())
	}
	return items, nil
}

func (r extractionReply) toResult() *models.ExtractionResult {
	result := &models.ExtractionResult{
		ActionItems:   make([]models.ActionItem, 0, len(r.ActionItems)),
		Decisions:     make([]models.Decision, 0, len(r.Decisions)),
		Entities:      []models.Entity{},
		FollowUps:     make([]models.FollowUp, 0, len(r.FollowUps)),
		OpenQuestions: r.OpenQuestions,
	}
	if result.OpenQuestions == nil {
		result.OpenQuestions = []string{}
	}

	for _, item := range r.ActionItems {
		result.ActionItems = append(result.ActionItems, item.toActionItem())
	}

	for _, d := range r.Decisions {
		result.Decisions = append(result.Decisions, models.Decision{
			Statement: strings.TrimSpace(d.Decision),
			Rationale: strings.TrimSpace(d.Rationale),
			Owner:     strings.TrimSpace(d.Owner),
		})
	}

	result.Entities = append(result.Entities, categorize(r.Entities.People, models.EntityPerson)...)
	result.Entities = append(result.Entities, categorize(r.Entities.Projects, models.EntityProject)...)
	result.Entities = append(result.Entities, categorize(r.Entities.Companies, models.EntityCompany)...)
	result.Entities = append(result.Entities, categorize(r.Entities.Systems, models.EntitySystem)...)

	for _, f := range r.FollowUps {
		if strings.TrimSpace(f.Item) == "" {
			continue
		}
		result.FollowUps = append(result.FollowUps, models.FollowUp{
			Item:   strings.TrimSpace(f.Item),
			Owner:  strings.TrimSpace(f.Owner),
			Timing: strings.TrimSpace(f.Timing),
		})
	}

	return result
}

func (r actionItemReply) toActionItem() models.ActionItem {
	priority := strings.ToLower(strings.TrimSpace(r.Priority))
	switch priority {
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		priority = models.PriorityMedium
	}

	dueDate := strings.TrimSpace(r.DueDate)
	if strings.EqualFold(dueDate, "null") {
		dueDate = ""
	}

	related := r.RelatedEntities
	if related == nil {
		related = []string{}
	}

	return models.ActionItem{
		Task:            strings.TrimSpace(r.Task),
		Assignee:        strings.TrimSpace(r.Assignee),
		Context:         strings.TrimSpace(r.Context),
		MentionedBy:     strings.TrimSpace(r.MentionedBy),
		DueDate:         dueDate,
		Priority:        priority,
		RelatedEntities: related,
	}
}

func categorize(names []string, category string) []models.Entity {
	entities := make([]models.Entity, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entities = append(entities, models.Entity{Name: name, Category: category})
	}
	return entities
}
