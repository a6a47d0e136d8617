package extractor

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Service performs stage-1 extraction: one LLM call that turns converted
// meeting text into a structured ExtractionResult. Failures are
// ExtractionErrors, which callers treat as non-fatal for the document.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a stage-1 extraction service
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// Extract sends the note text to the LLM and parses the structured reply.
// Assignee resolution runs before validation so the non-empty-assignee
// invariant holds on every returned result.
func (s *Service) Extract(ctx context.Context, text string, meta models.NoteMeta) (*models.ExtractionResult, error) {
	prompt := buildExtractionPrompt(text, meta)

	s.logger.Info().
		Str("source_id", meta.SourceID).
		Str("title", meta.Title).
		Int("prompt_length", len(prompt)).
		Msg("Extracting structured data")

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		// Call failures share the timeout kind: either way the model
		// never produced a reply to parse
		return nil, &models.ExtractionError{Kind: models.LLMTimeout, Err: err}
	}

	result, err := parseExtractionReply(response)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source_id", meta.SourceID).
			Int("response_length", len(response)).
			Msg("Extraction reply could not be parsed")
		return nil, &models.ExtractionError{Kind: models.LLMMalformedReply, Err: err}
	}

	resolveAssignees(result, meta)
	result.Model = s.llm.ModelName()

	if err := result.Validate(); err != nil {
		return nil, &models.ExtractionError{Kind: models.LLMMalformedReply, Err: err}
	}

	s.logger.Info().
		Str("source_id", meta.SourceID).
		Int("action_items", len(result.ActionItems)).
		Int("decisions", len(result.Decisions)).
		Int("entities", len(result.Entities)).
		Msg("Extraction completed")

	return result, nil
}

// resolveAssignees rewrites self-references and empty assignees so every
// action item names a person. "I'll do X" style replies resolve to the
// meeting creator; items with nobody named fall back to the creator, or
// "team" when the creator is unknown.
func resolveAssignees(result *models.ExtractionResult, meta models.NoteMeta) {
	fallback := strings.TrimSpace(meta.Creator)
	if fallback == "" {
		fallback = "team"
	}

	for i := range result.ActionItems {
		assignee := strings.TrimSpace(result.ActionItems[i].Assignee)

		switch {
		case assignee == "" || strings.EqualFold(assignee, "unassigned") || strings.EqualFold(assignee, "null"):
			assignee = fallback
		case isSelfReference(assignee):
			// The speaker is usually whoever captured the meeting
			if mentioned := strings.TrimSpace(result.ActionItems[i].MentionedBy); mentioned != "" && !isSelfReference(mentioned) {
				assignee = mentioned
			} else {
				assignee = fallback
			}
		}

		result.ActionItems[i].Assignee = assignee
	}
}

func isSelfReference(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "i", "me", "myself", "i'll", "speaker":
		return true
	}
	return false
}

// Compile-time interface check
var _ interfaces.Extractor = (*Service)(nil)
