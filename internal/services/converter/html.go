package converter

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// htmlToMarkdown converts an HTML content panel to markdown. Conversion
// failures and empty results fall back to tag stripping so the document
// still produces a readable note.
func (s *Service) htmlToMarkdown(html string) string {
	if html == "" {
		return ""
	}

	mdConverter := md.NewConverter("", true, nil)
	converted, err := mdConverter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(html)
	}

	trimmed := strings.TrimSpace(converted)
	if trimmed == "" {
		s.logger.Warn().Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(html)
	}

	return trimmed
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	multiSpaceRegex = regexp.MustCompile(`\s+`)
)

// stripHTMLTags removes basic HTML tags for fallback cases
func stripHTMLTags(htmlStr string) string {
	stripped := htmlTagRegex.ReplaceAllString(htmlStr, "")
	cleaned := multiSpaceRegex.ReplaceAllString(stripped, " ")

	// Decode HTML entities (basic set)
	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}
