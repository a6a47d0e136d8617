package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Vault   VaultConfig   `toml:"vault"`
	API     APIConfig     `toml:"api"`
	Claude  ClaudeConfig  `toml:"claude"`
	Sync    SyncConfig    `toml:"sync"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// VaultConfig locates the destination markdown vault.
type VaultConfig struct {
	Path   string `toml:"path"`   // Vault root directory (credentials file may override)
	Subdir string `toml:"subdir"` // Subdirectory for meeting notes within the vault
}

// APIConfig contains notes API connection settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`        // Notes API base URL
	ClientVersion  string `toml:"client_version"`  // Client version header sent with requests
	RequestTimeout string `toml:"request_timeout"` // HTTP request timeout as duration string
	FetchLimit     int    `toml:"fetch_limit"`     // Max documents per fetch request
	MaxRetries     int    `toml:"max_retries"`     // Retry attempts for transient failures
	InitialBackoff string `toml:"initial_backoff"` // First retry delay as duration string
	MaxBackoff     string `toml:"max_backoff"`     // Retry delay ceiling as duration string
}

// ClaudeConfig contains Anthropic Claude API configuration for enrichment.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (credentials file or ANTHROPIC_API_KEY override)
	Model       string  `toml:"model"`       // Model for extraction (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0 for determinism)
}

// SyncConfig controls pipeline behavior.
type SyncConfig struct {
	StateDir               string `toml:"state_dir"`               // Directory for checkpoint and lock files
	FirstRunWindowDays     int    `toml:"first_run_window_days"`   // Fetch window when no checkpoint exists (default: 7)
	ConsolidationThreshold int    `toml:"consolidation_threshold"` // Action-item count that triggers stage 2 (default: 15)
	LockTTL                string `toml:"lock_ttl"`                // Age after which a stale run lock is broken (default: "1h")
	EnrichmentEnabled      bool   `toml:"enrichment_enabled"`      // Enable LLM extraction (default: true)
}

// StorageConfig locates the run-history database.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path string `toml:"path"` // Database directory path
}

// LoggingConfig controls arbor logger output.
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in scriba.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:   "",
			Subdir: "00_Inbox/Meetings",
		},
		API: APIConfig{
			BaseURL:        "https://api.granola.ai/v2",
			ClientVersion:  "5.354.0",
			RequestTimeout: "30s",
			FetchLimit:     100,
			MaxRetries:     3,
			InitialBackoff: "2s",
			MaxBackoff:     "30s",
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0,
		},
		Sync: SyncConfig{
			StateDir:               "./state",
			FirstRunWindowDays:     7,
			ConsolidationThreshold: 15,
			LockTTL:                "1h",
			EnrichmentEnabled:      true,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./state/history",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Vault configuration
	if path := os.Getenv("SCRIBA_VAULT_PATH"); path != "" {
		config.Vault.Path = path
	}
	if subdir := os.Getenv("SCRIBA_VAULT_SUBDIR"); subdir != "" {
		config.Vault.Subdir = subdir
	}

	// API configuration
	if baseURL := os.Getenv("SCRIBA_API_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("SCRIBA_API_REQUEST_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.API.RequestTimeout = timeout
		}
	}
	if limit := os.Getenv("SCRIBA_API_FETCH_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			config.API.FetchLimit = l
		}
	}
	if retries := os.Getenv("SCRIBA_API_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			config.API.MaxRetries = r
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SCRIBA_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SCRIBA_ prefix takes priority
	}
	if model := os.Getenv("SCRIBA_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("SCRIBA_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil && mt > 0 {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("SCRIBA_CLAUDE_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Claude.Timeout = timeout
		}
	}
	if rateLimit := os.Getenv("SCRIBA_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		if _, err := time.ParseDuration(rateLimit); err == nil {
			config.Claude.RateLimit = rateLimit
		}
	}
	if temperature := os.Getenv("SCRIBA_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// Sync configuration
	if stateDir := os.Getenv("SCRIBA_SYNC_STATE_DIR"); stateDir != "" {
		config.Sync.StateDir = stateDir
	}
	if days := os.Getenv("SCRIBA_SYNC_FIRST_RUN_WINDOW_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d > 0 {
			config.Sync.FirstRunWindowDays = d
		}
	}
	if threshold := os.Getenv("SCRIBA_SYNC_CONSOLIDATION_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil && t > 0 {
			config.Sync.ConsolidationThreshold = t
		}
	}
	if enabled := os.Getenv("SCRIBA_SYNC_ENRICHMENT_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Sync.EnrichmentEnabled = e
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("SCRIBA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SCRIBA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// RequestTimeoutDuration parses the API request timeout, falling back to 30s.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDurationOr(c.API.RequestTimeout, 30*time.Second)
}

// LockTTLDuration parses the run-lock TTL, falling back to 1h.
func (c *Config) LockTTLDuration() time.Duration {
	return parseDurationOr(c.Sync.LockTTL, time.Hour)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
