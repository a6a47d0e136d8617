package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileResolver_Resolve(t *testing.T) {
	path := writeCredentials(t, `
access_token = "granola-token"
llm_api_key = "anthropic-key"
vault_path = "/data/vault"
`)

	resolver, err := NewFileResolver(path, common.NewDefaultConfig(), createTestLogger())
	require.NoError(t, err)

	creds, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "granola-token", creds.AccessToken)
	assert.Equal(t, "anthropic-key", creds.LLMAPIKey)
	assert.Equal(t, "/data/vault", creds.VaultPath)
}

func TestFileResolver_ConfigOverridesFile(t *testing.T) {
	path := writeCredentials(t, `
access_token = "granola-token"
llm_api_key = "file-key"
vault_path = "/file/vault"
`)

	config := common.NewDefaultConfig()
	config.Claude.APIKey = "config-key"
	config.Vault.Path = "/config/vault"

	resolver, err := NewFileResolver(path, config, createTestLogger())
	require.NoError(t, err)

	creds, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "config-key", creds.LLMAPIKey)
	assert.Equal(t, "/config/vault", creds.VaultPath)
}

func TestFileResolver_MissingFile(t *testing.T) {
	resolver, err := NewFileResolver(filepath.Join(t.TempDir(), "absent.toml"), common.NewDefaultConfig(), createTestLogger())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, models.ErrCredentialsNotFound)
}

func TestFileResolver_EmptyToken(t *testing.T) {
	path := writeCredentials(t, `access_token = ""`)
	resolver, err := NewFileResolver(path, common.NewDefaultConfig(), createTestLogger())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, models.ErrCredentialsNotFound)
}

func TestFileResolver_MalformedFile(t *testing.T) {
	path := writeCredentials(t, `access_token = [broken`)
	resolver, err := NewFileResolver(path, common.NewDefaultConfig(), createTestLogger())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrCredentialsNotFound)
}

func TestStaticResolver(t *testing.T) {
	resolver := NewStaticResolver(models.Credentials{AccessToken: "tok"})
	creds, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.AccessToken)

	empty := NewStaticResolver(models.Credentials{})
	_, err = empty.Resolve(context.Background())
	assert.ErrorIs(t, err, models.ErrCredentialsNotFound)
}
