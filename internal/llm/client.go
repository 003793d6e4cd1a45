// Package llm implements the optional fallback suggestion capability:
// an external language model that proposes canonical categories for
// names the cache and fuzzy tiers could not resolve.
package llm

import (
	"context"
	"time"
)

// Client is the low-level contract an LLM provider fulfils.
type Client interface {
	// Complete sends a prompt and returns the raw text of the reply.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
	// ListModels returns the identifiers of the models the provider
	// currently serves.
	ListModels(ctx context.Context) ([]string, error)
}

// Config holds configuration for the LLM suggester.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int
}
