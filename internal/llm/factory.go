package llm

import (
	"fmt"
	"strings"
)

// Provider defaults.
const (
	openaiBaseURL  = "https://api.openai.com/v1"
	openaiModel    = "gpt-4o-mini"
	mistralBaseURL = "https://api.mistral.ai/v1"
	mistralModel   = "mistral-small-latest"
)

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg, openaiBaseURL, openaiModel)
	case "mistral":
		// Mistral's API is wire-compatible with OpenAI's
		return newOpenAIClient(cfg, mistralBaseURL, mistralModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
