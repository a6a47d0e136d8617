package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// FileResolver reads credentials from a TOML file on disk. The notes API
// token lives outside the main config so the config file can be committed
// while the token cannot.
type FileResolver struct {
	path   string
	config *common.Config
	logger arbor.ILogger
}

// NewFileResolver creates a credential resolver for the given file path.
// An empty path falls back to ~/.config/scriba/credentials.toml.
func NewFileResolver(path string, config *common.Config, logger arbor.ILogger) (*FileResolver, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "scriba", "credentials.toml")
	}

	return &FileResolver{
		path:   path,
		config: config,
		logger: logger,
	}, nil
}

// Resolve loads credentials from the file and applies config overrides.
// Returns models.ErrCredentialsNotFound when the file does not exist or
// carries no access token.
func (r *FileResolver) Resolve(ctx context.Context) (*models.Credentials, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn().Str("path", r.path).Msg("Credentials file not found")
			return nil, models.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read credentials file %s: %w", r.path, err)
	}

	var creds models.Credentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", r.path, err)
	}

	if creds.AccessToken == "" {
		r.logger.Warn().Str("path", r.path).Msg("Credentials file has no access token")
		return nil, models.ErrCredentialsNotFound
	}

	// Config and environment take priority for the LLM key and vault path
	if r.config.Claude.APIKey != "" {
		creds.LLMAPIKey = r.config.Claude.APIKey
	}
	if r.config.Vault.Path != "" {
		creds.VaultPath = r.config.Vault.Path
	}

	r.logger.Debug().Str("path", r.path).Msg("Credentials resolved")
	return &creds, nil
}

// StaticResolver returns fixed credentials. Used in tests and for
// environments where tokens arrive through the process environment.
type StaticResolver struct {
	creds models.Credentials
}

// NewStaticResolver creates a resolver that always returns the given credentials
func NewStaticResolver(creds models.Credentials) *StaticResolver {
	return &StaticResolver{creds: creds}
}

// Resolve returns the static credentials
func (r *StaticResolver) Resolve(ctx context.Context) (*models.Credentials, error) {
	if r.creds.AccessToken == "" {
		return nil, models.ErrCredentialsNotFound
	}
	creds := r.creds
	return &creds, nil
}

// Compile-time interface checks
var (
	_ interfaces.CredentialResolver = (*FileResolver)(nil)
	_ interfaces.CredentialResolver = (*StaticResolver)(nil)
)
