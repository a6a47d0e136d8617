package converter

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/models"
)

// Service converts captured document content to markdown. Structured
// content trees are rendered node by node; documents that only carry an
// HTML panel go through the HTML fallback path.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new converter service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Convert renders a document's content as markdown. The tree path is
// deterministic: the same document always produces byte-identical output.
// Documents without any content render a placeholder line.
func (s *Service) Convert(doc *models.Document) string {
	if doc.Content != nil {
		renderer := newTreeRenderer()
		markdown := renderer.render(doc.Content)

		for _, nodeType := range renderer.unsupported {
			convErr := &models.ConversionError{NodeType: nodeType}
			s.logger.Debug().
				Str("document_id", doc.ID).
				Str("node_type", nodeType).
				Msg(convErr.Error())
		}

		if markdown != "" {
			return markdown
		}
	}

	if doc.ContentHTML != "" {
		s.logger.Debug().Str("document_id", doc.ID).Msg("Converting HTML panel content")
		return s.htmlToMarkdown(doc.ContentHTML)
	}

	s.logger.Warn().Str("document_id", doc.ID).Msg("No content found for document")
	return "_No content available_"
}
