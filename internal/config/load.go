package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/recyclerie/bascule/internal/llm"
	"github.com/recyclerie/bascule/internal/normalize"
	"github.com/recyclerie/bascule/internal/resolve"
)

// LoadLLMConfig assembles the fallback-provider configuration from
// Viper. An empty provider means the fallback tier is disabled; that is
// a normal, supported state, not an error.
func LoadLLMConfig() llm.Config {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
	if d := viper.GetDuration("llm.retry_delay"); d > 0 {
		cfg.RetryDelay = d
	}
	return cfg
}

// LoadResolverConfig assembles the cascade tuning from Viper; zero
// values fall back to resolve.DefaultConfig at construction.
func LoadResolverConfig() resolve.Config {
	return resolve.Config{
		Threshold:    viper.GetFloat64("resolver.threshold"),
		BatchSize:    viper.GetInt("resolver.batch_size"),
		BatchTimeout: viper.GetDuration("resolver.batch_timeout"),
	}
}

// LoadNormalizeOptions assembles the normalizer settings from Viper.
// Unset keys keep the package defaults for the 2025 legacy import.
func LoadNormalizeOptions() normalize.Options {
	opts := normalize.Options{
		ReferenceYear:        viper.GetInt("import.reference_year"),
		DefaultCategoryLabel: viper.GetString("import.default_category"),
		DefaultDestination:   viper.GetString("import.default_destination"),
	}
	if v := viper.GetString("import.orphan_range_start"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			opts.OrphanRangeStart = t
		}
	}
	if v := viper.GetString("import.orphan_range_end"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			opts.OrphanRangeEnd = t
		}
	}
	return opts
}
