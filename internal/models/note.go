package models

import "time"

// Note frontmatter constants.
const (
	NoteSource = "notes-api"
	NoteType   = "meeting-note"
	NoteStatus = "auto-generated"
)

// NoteMeta is the presentation metadata extracted from a document envelope,
// rendered into a note's frontmatter and header.
type NoteMeta struct {
	SourceID        string
	Title           string
	CreatedAt       time.Time
	Attendees       []string
	Creator         string
	DurationMinutes int
}

// WriteOutcome describes what the writer did with a note.
type WriteOutcome string

const (
	// OutcomeCreated means a new note file was written.
	OutcomeCreated WriteOutcome = "created"
	// OutcomeSkipped means a note with the same dedup key already exists.
	OutcomeSkipped WriteOutcome = "skipped"
	// OutcomeUpdated means an existing note was atomically replaced
	// (enrichment rewrite).
	OutcomeUpdated WriteOutcome = "updated"
)

// WriteResult reports the outcome and destination of a write.
type WriteResult struct {
	Outcome WriteOutcome
	Path    string // path relative to the vault root; empty when skipped
}
