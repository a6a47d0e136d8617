package extractor

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// ConsolidatorService performs stage-2 consolidation: when stage 1 returns
// more action items than the threshold, a second LLM call merges
// near-duplicates. The bound, assignee coverage, and fixpoint properties
// are enforced in code after the call, not trusted from the model.
type ConsolidatorService struct {
	llm       interfaces.LLMService
	threshold int
	logger    arbor.ILogger
}

// NewConsolidator creates a stage-2 consolidation service
func NewConsolidator(llm interfaces.LLMService, threshold int, logger arbor.ILogger) *ConsolidatorService {
	if threshold <= 0 {
		threshold = 15
	}
	return &ConsolidatorService{
		llm:       llm,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the action-item count above which consolidation runs.
func (s *ConsolidatorService) Threshold() int {
	return s.threshold
}

// Consolidate merges an oversized action-item list. Consolidating an
// already-consolidated result is a no-op, as is consolidating a result
// within the bound. On LLM failure the unconsolidated list is truncated to
// the threshold and returned together with a ConsolidationError; the
// returned result is always usable.
func (s *ConsolidatorService) Consolidate(ctx context.Context, result *models.ExtractionResult, meta models.NoteMeta) (*models.ExtractionResult, error) {
	// Fixpoint guard: re-consolidating must not keep shrinking the set
	if result.Consolidated {
		return result, nil
	}
	if len(result.ActionItems) <= s.threshold {
		return result, nil
	}

	s.logger.Info().
		Str("source_id", meta.SourceID).
		Int("action_items", len(result.ActionItems)).
		Int("threshold", s.threshold).
		Msg("Consolidating action items")

	inputAssignees := result.Assignees()
	prompt := buildConsolidationPrompt(result, meta, s.threshold)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		consErr := &models.ConsolidationError{Kind: models.LLMTimeout, Err: err}
		s.logger.Warn().
			Err(consErr).
			Str("source_id", meta.SourceID).
			Msg("Consolidation call failed, truncating unconsolidated list")
		return s.fallback(result), consErr
	}

	merged, err := parseActionItemsReply(response)
	if err != nil || len(merged) == 0 {
		consErr := &models.ConsolidationError{Kind: models.LLMMalformedReply, Err: err}
		s.logger.Warn().
			Err(consErr).
			Str("source_id", meta.SourceID).
			Msg("Consolidation reply unusable, truncating unconsolidated list")
		return s.fallback(result), consErr
	}

	backfillAssignees(merged, result.ActionItems, meta)
	merged = ensureAssigneeCoverage(merged, result.ActionItems, inputAssignees)
	merged = selectBounded(merged, s.threshold)

	consolidated := *result
	consolidated.ActionItems = merged
	consolidated.Consolidated = true

	s.logger.Info().
		Str("source_id", meta.SourceID).
		Int("action_items", len(merged)).
		Msg("Consolidation completed")

	return &consolidated, nil
}

// fallback produces the degraded result used when the LLM pass fails: the
// original items truncated to the threshold, keeping assignee coverage.
func (s *ConsolidatorService) fallback(result *models.ExtractionResult) *models.ExtractionResult {
	truncated := *result
	truncated.ActionItems = selectBounded(result.ActionItems, s.threshold)
	truncated.Consolidated = true
	return &truncated
}

// backfillAssignees fills empty assignees on merged items. The most
// frequent assignee among the source items is the best guess for who owns a
// merged item; the meeting creator is the last resort.
func backfillAssignees(merged []models.ActionItem, source []models.ActionItem, meta models.NoteMeta) {
	counts := make(map[string]int)
	top := ""
	for _, item := range source {
		key := strings.ToLower(item.Assignee)
		if key == "" {
			continue
		}
		counts[key]++
		if top == "" || counts[key] > counts[strings.ToLower(top)] {
			top = item.Assignee
		}
	}

	fallback := top
	if fallback == "" {
		fallback = strings.TrimSpace(meta.Creator)
	}
	if fallback == "" {
		fallback = "team"
	}

	for i := range merged {
		assignee := strings.TrimSpace(merged[i].Assignee)
		if assignee == "" || strings.EqualFold(assignee, "unassigned") {
			merged[i].Assignee = fallback
		} else {
			merged[i].Assignee = assignee
		}
	}
}

// ensureAssigneeCoverage re-adds a representative item for any assignee the
// model dropped entirely. No assignee's work may vanish from the note.
func ensureAssigneeCoverage(merged []models.ActionItem, source []models.ActionItem, inputAssignees []string) []models.ActionItem {
	present := make(map[string]bool, len(merged))
	for _, item := range merged {
		present[strings.ToLower(item.Assignee)] = true
	}

	for _, assignee := range inputAssignees {
		if present[strings.ToLower(assignee)] {
			continue
		}
		if item, ok := topItemForAssignee(source, assignee); ok {
			merged = append(merged, item)
			present[strings.ToLower(assignee)] = true
		}
	}

	return merged
}

// topItemForAssignee returns the highest-priority source item belonging to
// the given assignee, first occurrence winning ties.
func topItemForAssignee(items []models.ActionItem, assignee string) (models.ActionItem, bool) {
	best := models.ActionItem{}
	found := false
	for _, item := range items {
		if !strings.EqualFold(item.Assignee, assignee) {
			continue
		}
		if !found || models.PriorityRank(item.Priority) < models.PriorityRank(best.Priority) {
			best = item
			found = true
		}
	}
	return best, found
}

// selectBounded deterministically truncates items to the limit. Each
// assignee keeps at least their highest-priority item before remaining
// capacity is filled in priority order, so coverage survives truncation.
func selectBounded(items []models.ActionItem, limit int) []models.ActionItem {
	if len(items) <= limit {
		return items
	}

	taken := make([]bool, len(items))
	selected := make([]models.ActionItem, 0, limit)

	// First pass: one item per assignee, best priority, input order on ties
	seen := make(map[string]int)
	for idx, item := range items {
		key := strings.ToLower(item.Assignee)
		prev, ok := seen[key]
		if !ok {
			seen[key] = idx
			continue
		}
		if models.PriorityRank(item.Priority) < models.PriorityRank(items[prev].Priority) {
			seen[key] = idx
		}
	}

	// Preserve input order among the per-assignee picks
	picked := make(map[int]bool, len(seen))
	for _, idx := range seen {
		picked[idx] = true
	}
	for idx := range items {
		if picked[idx] && len(selected) < limit {
			selected = append(selected, items[idx])
			taken[idx] = true
		}
	}

	// Second pass: fill remaining capacity, highest priority first
	for rank := 0; rank <= 3; rank++ {
		for idx, item := range items {
			if len(selected) >= limit {
				return selected
			}
			if taken[idx] || models.PriorityRank(item.Priority) != rank {
				continue
			}
			selected = append(selected, item)
			taken[idx] = true
		}
	}

	return selected
}

// Compile-time interface check
var _ interfaces.Consolidator = (*ConsolidatorService)(nil)
