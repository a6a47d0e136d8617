package llm

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"429 status", fmt.Errorf("anthropic: 429 Too Many Requests"), true},
		{"rate_limit type", fmt.Errorf("rate_limit_error: slow down"), true},
		{"overloaded", fmt.Errorf("overloaded_error: try again later"), true},
		{"other error", fmt.Errorf("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil error", nil, 0},
		{"retry after seconds", fmt.Errorf("429: retry after 12s"), 12 * time.Second},
		{"retry-after header style", fmt.Errorf("retry-after: 30"), 30 * time.Second},
		{"fractional seconds", fmt.Errorf("retry after 1.5s"), 1500 * time.Millisecond},
		{"no delay present", fmt.Errorf("429 Too Many Requests"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(1, 0))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(2, 0))
	assert.Equal(t, 20*time.Second, cfg.CalculateBackoff(3, 0))

	// API-provided delay takes over as the base, plus a one second buffer
	assert.Equal(t, 13*time.Second, cfg.CalculateBackoff(1, 12*time.Second))

	// Capped at MaxBackoff
	assert.Equal(t, 60*time.Second, cfg.CalculateBackoff(10, 0))
}
