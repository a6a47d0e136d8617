package models

// Credentials is the validated bundle a credential resolver returns.
// How each value was obtained is the resolver's concern; the pipeline
// only ever sees the resolved bundle.
type Credentials struct {
	AccessToken string `toml:"access_token"` // notes API bearer token
	LLMAPIKey   string `toml:"llm_api_key"`  // Anthropic API key
	VaultPath   string `toml:"vault_path"`   // root of the markdown vault
}
