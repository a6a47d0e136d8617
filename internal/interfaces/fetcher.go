package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scriba/internal/models"
)

// DocumentFetcher retrieves meeting documents from the notes API.
//
// FetchSince returns documents created after the given timestamp, ordered
// oldest-first. Callers must tolerate documents they have already seen:
// the writer's dedup check is the authoritative guard, not the window.
type DocumentFetcher interface {
	// FetchSince returns up to limit documents created after since,
	// oldest-first. Fails with *models.FetchError (transient or
	// authorization).
	FetchSince(ctx context.Context, since time.Time, limit int) ([]models.Document, error)

	// FetchByID locates one document by external id within the recent
	// fetch window. Returns models.ErrDocumentNotFound when absent.
	FetchByID(ctx context.Context, id string) (*models.Document, error)
}
