// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// ProviderFuzzy marks mappings produced by the string-similarity tier.
// LLM-produced mappings carry the configured provider name instead
// (e.g. "mistral").
const ProviderFuzzy = "fuzzy"

// NormalizeName collapses a raw category label to its cache key form.
// Two labels differing only by case or surrounding whitespace share one
// cache entry.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CategoryMapping is one persistent resolution-cache entry: a normalized
// source label resolved to a canonical category.
type CategoryMapping struct {
	LastResolved     time.Time
	SourceNormalized string
	CategoryName     string
	Provider         string
	Confidence       float64
	CategoryID       int
}

// ResolvedCategory is one entry of a mapping proposal, keyed by the raw
// source label it resolves.
type ResolvedCategory struct {
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	CategoryID   int     `json:"category_id"`
}

// AnalyzeStats aggregates what an analysis pass saw.
type AnalyzeStats struct {
	Provider           string `json:"provider,omitempty"`
	TotalLines         int    `json:"total_lines"`
	ValidLines         int    `json:"valid_lines"`
	ErrorLines         int    `json:"error_lines"`
	UniqueCategories   int    `json:"unique_categories"`
	MappedCategories   int    `json:"mapped_categories"`
	UnmappedCategories int    `json:"unmapped_categories"`
	LLMMapped          int    `json:"llm_mapped"`
}

// MappingProposal is the artifact returned by Analyze for human review.
// Mappings is keyed by the raw source label as it appeared in the file.
type MappingProposal struct {
	Mappings map[string]ResolvedCategory `json:"mappings"`
	Unmapped []string                    `json:"unmapped"`
	Errors   []string                    `json:"errors,omitempty"`
	Stats    AnalyzeStats                `json:"stats"`
}

// ApprovedMapping is the reviewed artifact handed back to Execute.
type ApprovedMapping struct {
	Mappings map[string]ResolvedCategory `json:"mappings"`
	Unmapped []string                    `json:"unmapped"`
}

// ClampConfidence bounds a confidence score to [0, 100].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
