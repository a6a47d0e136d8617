package vault

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scriba/internal/models"
)

// noteFrontmatter is the YAML frontmatter of a meeting note. Field order
// matches declaration order, keeping rendered notes stable across runs.
type noteFrontmatter struct {
	Date        string   `yaml:"date"`
	Time        string   `yaml:"time"`
	Meeting     string   `yaml:"meeting"`
	Source      string   `yaml:"source"`
	SourceID    string   `yaml:"source_id"`
	Type        string   `yaml:"type"`
	Status      string   `yaml:"status"`
	Attendees   []string `yaml:"attendees,omitempty"`
	Duration    string   `yaml:"duration,omitempty"`
	LLMEnriched bool     `yaml:"llm_enriched,omitempty"`
	LLMModel    string   `yaml:"llm_model,omitempty"`
}

// renderFrontmatter builds the YAML frontmatter block for a note.
// model is empty for basic notes and carries the LLM identifier for
// enriched rewrites.
func renderFrontmatter(meta models.NoteMeta, model string) (string, error) {
	fm := noteFrontmatter{
		Date:     meta.CreatedAt.Format("2006-01-02"),
		Time:     meta.CreatedAt.Format("15:04"),
		Meeting:  meta.Title,
		Source:   models.NoteSource,
		SourceID: meta.SourceID,
		Type:     models.NoteType,
		Status:   models.NoteStatus,
	}

	for _, attendee := range meta.Attendees {
		fm.Attendees = append(fm.Attendees, wikilink(NormalizeAttendeeName(attendee)))
	}

	if meta.DurationMinutes > 0 {
		fm.Duration = fmt.Sprintf("%d min", meta.DurationMinutes)
	}

	if model != "" {
		fm.LLMEnriched = true
		fm.LLMModel = model
	}

	data, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	return "---\n" + string(data) + "---\n", nil
}

// wikilink renders a name as a vault cross-link
func wikilink(name string) string {
	return "[[" + name + "]]"
}

var nameEmailRegex = regexp.MustCompile(`(.+?)\s*<.*>`)

// NormalizeAttendeeName extracts a person's display name from the forms
// attendee lists arrive in: "Full Name <mail@example.com>" keeps the name,
// a bare address like "john.doe@example.com" becomes "John Doe", and
// anything else passes through unchanged.
func NormalizeAttendeeName(raw string) string {
	raw = strings.TrimSpace(raw)

	if matches := nameEmailRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if strings.Contains(raw, "@") {
		local := strings.SplitN(raw, "@", 2)[0]
		local = strings.ReplaceAll(local, ".", " ")
		local = strings.ReplaceAll(local, "_", " ")

		words := strings.Fields(local)
		for i, word := range words {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
		return strings.Join(words, " ")
	}

	return raw
}
