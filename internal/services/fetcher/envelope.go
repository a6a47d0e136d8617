package fetcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/scriba/internal/models"
)

// fetchRequest is the POST body for /get-documents
type fetchRequest struct {
	Limit                  int    `json:"limit"`
	Offset                 int    `json:"offset"`
	IncludeLastViewedPanel bool   `json:"include_last_viewed_panel"`
	CreatedAfter           string `json:"created_after,omitempty"`
}

// fetchResponse is the top-level API response
type fetchResponse struct {
	Docs []documentEnvelope `json:"docs"`
}

// documentEnvelope mirrors the wire shape of a single document. Panel
// content arrives either as a structured tree or as raw HTML, so it is
// deferred to toDocument for inspection.
type documentEnvelope struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at"`
	ValidMeeting        *bool           `json:"valid_meeting"`
	People              *peopleEnvelope `json:"people"`
	GoogleCalendarEvent *gcalEnvelope   `json:"google_calendar_event"`
	Metadata            *metaEnvelope   `json:"metadata"`
	LastViewedPanel     *panelEnvelope  `json:"last_viewed_panel"`
}

type peopleEnvelope struct {
	Creator   *personEnvelope  `json:"creator"`
	Attendees []personEnvelope `json:"attendees"`
}

type personEnvelope struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// display returns the name when present, otherwise the email
func (p personEnvelope) display() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

type gcalEnvelope struct {
	ID        string               `json:"id"`
	Attendees []gcalPersonEnvelope `json:"attendees"`
}

type gcalPersonEnvelope struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type metaEnvelope struct {
	DurationMinutes int `json:"duration_minutes"`
}

type panelEnvelope struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// toDocument converts the wire document into the internal model. Attendee
// resolution prefers the people block (creator first), falling back to the
// calendar event when the people block is empty.
func (e documentEnvelope) toDocument() (models.Document, error) {
	doc := models.Document{
		ID:    e.ID,
		Title: e.Title,
	}
	if doc.Title == "" {
		doc.Title = "Untitled Meeting"
	}

	createdAt, err := parseAPITime(e.CreatedAt)
	if err != nil {
		return doc, fmt.Errorf("invalid created_at %q: %w", e.CreatedAt, err)
	}
	doc.CreatedAt = createdAt

	if updatedAt, err := parseAPITime(e.UpdatedAt); err == nil {
		doc.UpdatedAt = updatedAt
	}

	// Absent valid_meeting means unconfirmed, treated as invalid
	if e.ValidMeeting != nil {
		doc.ValidMeeting = *e.ValidMeeting
	}

	if e.People != nil {
		if e.People.Creator != nil {
			if name := e.People.Creator.display(); name != "" {
				doc.Creator = name
				doc.Attendees = append(doc.Attendees, name)
			}
		}
		for _, person := range e.People.Attendees {
			if name := person.display(); name != "" {
				doc.Attendees = append(doc.Attendees, name)
			}
		}
	}

	if len(doc.Attendees) == 0 && e.GoogleCalendarEvent != nil {
		for _, person := range e.GoogleCalendarEvent.Attendees {
			name := person.DisplayName
			if name == "" {
				name = person.Email
			}
			if name != "" {
				doc.Attendees = append(doc.Attendees, name)
			}
		}
	}

	if e.Metadata != nil {
		doc.DurationMinutes = e.Metadata.DurationMinutes
	}

	if e.LastViewedPanel != nil && len(e.LastViewedPanel.Content) > 0 {
		if err := decodePanelContent(e.LastViewedPanel.Content, &doc); err != nil {
			return doc, err
		}
	}

	return doc, nil
}

// decodePanelContent unpacks the panel content field, which is either a
// structured content tree or an HTML string from older panel formats.
func decodePanelContent(raw json.RawMessage, doc *models.Document) error {
	switch raw[0] {
	case '{':
		var node models.ContentNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("invalid panel content tree: %w", err)
		}
		doc.Content = &node
	case '"':
		var html string
		if err := json.Unmarshal(raw, &html); err != nil {
			return fmt.Errorf("invalid panel content string: %w", err)
		}
		doc.ContentHTML = html
	case 'n':
		// JSON null, no content
	default:
		return fmt.Errorf("unexpected panel content shape starting with %q", raw[0])
	}
	return nil
}

func parseAPITime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Some timestamps carry fractional seconds without a zone
		t, err = time.Parse("2006-01-02T15:04:05.999999999", s)
	}
	return t, err
}
