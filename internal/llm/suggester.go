package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/recyclerie/bascule/internal/service"
)

const suggestSystemPrompt = "You map junk category labels from a French recycling shop " +
	"to its canonical category list. Reply with one line per input label, " +
	"formatted exactly as: label | category | confidence. The category must " +
	"be copied verbatim from the known list, or '-' when nothing fits. " +
	"Confidence is 0-100. No other text."

// Suggester adapts an LLM client to the resolver's fallback contract.
type Suggester struct {
	client    Client
	models    *ModelsCache
	provider  string
	retryOpts service.RetryOptions
}

// NewSuggester creates the fallback suggestion capability. models is
// the process-wide model-list cache, constructed once by the caller and
// passed by reference.
func NewSuggester(cfg Config, models *ModelsCache) (*Suggester, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Suggester{
		client:    client,
		models:    models,
		provider:  strings.ToLower(cfg.Provider),
		retryOpts: retryOpts,
	}, nil
}

// Provider returns the configured provider name, which is also what
// cache entries record as their resolution source.
func (s *Suggester) Provider() string {
	return s.provider
}

// Suggest asks the model to map one batch of unresolved labels against
// the known category list.
func (s *Suggester) Suggest(ctx context.Context, batch []string, knownCategories []string) ([]service.Suggestion, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	prompt := buildSuggestPrompt(batch, knownCategories)

	var content string
	err := common.WithRetry(ctx, func() error {
		var completeErr error
		content, completeErr = s.client.Complete(ctx, suggestSystemPrompt, prompt)
		return completeErr
	}, s.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSuggestionFailed, err)
	}

	suggestions := parseSuggestions(content, batch)
	slog.Debug("fallback batch completed",
		"provider", s.provider,
		"batch_size", len(batch),
		"suggestions", len(suggestions))

	return suggestions, nil
}

// Models returns the provider's model list, served from the injected
// cache until it expires.
func (s *Suggester) Models(ctx context.Context) ([]string, error) {
	if s.models != nil {
		if cached, ok := s.models.Get(); ok {
			return cached, nil
		}
	}

	models, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	if s.models != nil {
		s.models.Set(models)
	}
	return models, nil
}

func buildSuggestPrompt(batch []string, knownCategories []string) string {
	var sb strings.Builder
	sb.WriteString("Known categories:\n")
	for _, cat := range knownCategories {
		sb.WriteString("- ")
		sb.WriteString(cat)
		sb.WriteString("\n")
	}
	sb.WriteString("\nLabels to map:\n")
	for _, name := range batch {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	return sb.String()
}
