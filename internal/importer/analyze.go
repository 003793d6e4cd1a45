package importer

import (
	"context"
	"io"
	"log/slog"

	"github.com/recyclerie/bascule/internal/model"
)

// Analyze is the dry-run half of the workflow: parse and validate the
// canonical CSV, resolve the distinct category labels, and return a
// proposal for human review. Data-quality problems never abort; only
// structural failures (unreadable file, bad header) return an error.
func (imp *Importer) Analyze(ctx context.Context, r io.Reader) (*model.MappingProposal, error) {
	file, err := readCanonical(r)
	if err != nil {
		return nil, err
	}

	valid, rowErrs := imp.validateRows(file.rows)
	names := distinctCategories(valid)

	resolution, err := imp.resolver.ResolveAll(ctx, names)
	if err != nil {
		return nil, err
	}

	proposal := &model.MappingProposal{
		Mappings: resolution.Mappings,
		Unmapped: resolution.Unmapped,
		Errors:   rowErrs,
		Stats: model.AnalyzeStats{
			Provider:           resolution.Stats.Provider,
			TotalLines:         len(file.rows),
			ValidLines:         len(valid),
			ErrorLines:         len(rowErrs),
			UniqueCategories:   len(names),
			MappedCategories:   len(resolution.Mappings),
			UnmappedCategories: len(resolution.Unmapped),
			LLMMapped:          resolution.Stats.FromLLM,
		},
	}

	slog.Info("analysis finished",
		"total_lines", proposal.Stats.TotalLines,
		"valid_lines", proposal.Stats.ValidLines,
		"error_lines", proposal.Stats.ErrorLines,
		"unique_categories", proposal.Stats.UniqueCategories,
		"unmapped", proposal.Stats.UnmappedCategories)

	return proposal, nil
}

// SuggestForNames re-runs only the fallback tier for a caller-supplied
// set of names, after a reviewer decides to widen the net on a
// proposal. Clamping and cache write-back behave as in the full cascade.
func (imp *Importer) SuggestForNames(ctx context.Context, names []string) (*model.MappingProposal, error) {
	resolution, err := imp.resolver.ResolveWithFallback(ctx, names)
	if err != nil {
		return nil, err
	}

	return &model.MappingProposal{
		Mappings: resolution.Mappings,
		Unmapped: resolution.Unmapped,
		Stats: model.AnalyzeStats{
			Provider:           resolution.Stats.Provider,
			UniqueCategories:   len(names),
			MappedCategories:   len(resolution.Mappings),
			UnmappedCategories: len(resolution.Unmapped),
			LLMMapped:          resolution.Stats.FromLLM,
		},
	}, nil
}
