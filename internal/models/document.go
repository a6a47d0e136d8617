package models

import (
	"encoding/json"
	"time"
)

// Document represents a meeting document fetched from the notes API.
// Documents are immutable once fetched; the pipeline never mutates them.
type Document struct {
	// Identity
	ID    string `json:"id"` // External document id, the sole dedup key
	Title string `json:"title"`

	// Meeting metadata
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Attendees       []string  `json:"attendees"`
	Creator         string    `json:"creator"`
	DurationMinutes int       `json:"duration_minutes"`
	ValidMeeting    bool      `json:"valid_meeting"`

	// Content. At most one of these is populated: the structured tree from
	// the note editor, or the raw HTML panel some documents carry instead.
	Content     *ContentNode `json:"content,omitempty"`
	ContentHTML string       `json:"content_html,omitempty"`
}

// ContentNode is a node in the document's structured content tree
// (ProseMirror-style: doc > heading/paragraph/list/... > text).
type ContentNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []ContentNode  `json:"content,omitempty"`
}

// Mark is an inline formatting annotation on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Level returns the heading level attribute, defaulting to 1.
func (n *ContentNode) Level() int {
	if n.Attrs != nil {
		switch v := n.Attrs["level"].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return 1
}

// Attr returns a string attribute by name, or "" when absent.
func (n *ContentNode) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	if s, ok := n.Attrs[name].(string); ok {
		return s
	}
	return ""
}

// HasContent reports whether the document carries any convertible content.
func (d *Document) HasContent() bool {
	return d.Content != nil || d.ContentHTML != ""
}
