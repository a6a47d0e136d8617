package interfaces

import "context"

// Message represents a single turn in an LLM conversation.
// Role is "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMService is a narrow chat-completion interface over a cloud LLM.
// Both extraction stages issue exactly one Chat call per invocation, so
// they can be substituted with deterministic stubs in tests.
type LLMService interface {
	// Chat generates a completion for the conversation. Blocking, with
	// the service's configured timeout and retry policy applied.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases client resources.
	Close() error
}
