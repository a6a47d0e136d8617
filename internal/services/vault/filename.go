package vault

import (
	"regexp"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*!]`)
	repeatedWhitespace   = regexp.MustCompile(`\s+`)
)

// maxTitleLength caps the sanitized title portion of a filename.
const maxTitleLength = 100

// noteFilename builds the note filename: "YYYY-MM-DD - Title.md".
func noteFilename(meta models.NoteMeta) string {
	return meta.CreatedAt.Format("2006-01-02") + " - " + sanitizeTitle(meta.Title) + ".md"
}

// sanitizeTitle strips characters that are unsafe in filenames, collapses
// whitespace, and caps the length.
func sanitizeTitle(title string) string {
	safe := invalidFilenameChars.ReplaceAllString(title, "")
	safe = repeatedWhitespace.ReplaceAllString(safe, " ")
	safe = strings.TrimSpace(safe)

	if runes := []rune(safe); len(runes) > maxTitleLength {
		safe = strings.TrimSpace(string(runes[:maxTitleLength]))
	}

	if safe == "" {
		safe = "Untitled Meeting"
	}

	return safe
}

// shortID returns the first 8 characters of a document id, used as a
// collision suffix when two meetings share a date and title.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
