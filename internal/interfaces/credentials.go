package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
)

// CredentialResolver returns a validated credential bundle or fails with
// models.ErrCredentialsNotFound. Keeps environment-specific discovery out
// of the core pipeline.
type CredentialResolver interface {
	Resolve(ctx context.Context) (*models.Credentials, error)
}
