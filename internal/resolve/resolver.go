// Package resolve maps free-text category labels to canonical
// categories through a deterministic cascade: persistent cache, fuzzy
// string similarity, then an optional batched LLM fallback.
package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/service"
)

// Config tunes the resolution cascade.
type Config struct {
	// Threshold is the minimum 0-100 confidence the fuzzy tier must
	// reach before a match is accepted.
	Threshold float64
	// BatchSize bounds how many unresolved names go into one fallback
	// call.
	BatchSize int
	// BatchTimeout bounds each fallback call so a stalled provider
	// cannot hang the whole analysis.
	BatchTimeout time.Duration
}

// DefaultConfig returns the standard cascade settings.
func DefaultConfig() Config {
	return Config{
		Threshold:    80,
		BatchSize:    20,
		BatchTimeout: 8 * time.Second,
	}
}

// Resolver resolves category labels for one import batch.
type Resolver struct {
	store     service.Storage
	suggester service.Suggester
	cfg       Config
}

// New creates a Resolver. suggester may be nil, in which case the
// fallback tier never activates.
func New(store service.Storage, suggester service.Suggester, cfg Config) *Resolver {
	defaults := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaults.BatchTimeout
	}
	return &Resolver{store: store, suggester: suggester, cfg: cfg}
}

// Stats attributes each resolution to the tier that produced it.
type Stats struct {
	Provider        string
	FromCache       int
	FromFuzzy       int
	FromLLM         int
	FallbackSkipped bool
}

// Resolution is the outcome of a cascade run. Mappings is keyed by the
// raw label as supplied; Unmapped preserves input order.
type Resolution struct {
	Mappings map[string]model.ResolvedCategory
	Unmapped []string
	Stats    Stats
}

// ResolveAll runs the full cascade over a batch of labels. Cache and
// fallback failures are logged and degrade to the next tier; they never
// abort the run.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) (*Resolution, error) {
	categories, err := r.store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Mappings: make(map[string]model.ResolvedCategory)}
	var unresolved []string

	for _, name := range dedupe(names) {
		// Tier 1: exact cache hit on the normalized name
		if cached := r.lookupCache(ctx, name); cached != nil {
			res.Mappings[name] = model.ResolvedCategory{
				CategoryID:   cached.CategoryID,
				CategoryName: cached.CategoryName,
				Confidence:   cached.Confidence,
			}
			res.Stats.FromCache++
			continue
		}

		// Tier 2: fuzzy similarity against every active category
		if best, score := bestMatch(name, categories); confidence(score) >= r.cfg.Threshold {
			conf := confidence(score)
			res.Mappings[name] = model.ResolvedCategory{
				CategoryID:   best.ID,
				CategoryName: best.Name,
				Confidence:   conf,
			}
			res.Stats.FromFuzzy++
			r.writeCache(ctx, name, best.ID, model.ProviderFuzzy, conf)
			continue
		}

		unresolved = append(unresolved, name)
	}

	// Tier 3: batched LLM fallback for whatever is left
	res.Unmapped = r.runFallback(ctx, unresolved, categories, res)

	slog.Info("category resolution finished",
		"from_cache", res.Stats.FromCache,
		"from_fuzzy", res.Stats.FromFuzzy,
		"from_llm", res.Stats.FromLLM,
		"unmapped", len(res.Unmapped))

	return res, nil
}

// ResolveWithFallback runs only the fallback tier for a caller-supplied
// set of names, with the same clamping and cache write-back as the full
// cascade. Used after a human widens the net on a reviewed proposal.
func (r *Resolver) ResolveWithFallback(ctx context.Context, names []string) (*Resolution, error) {
	categories, err := r.store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Mappings: make(map[string]model.ResolvedCategory)}
	res.Unmapped = r.runFallback(ctx, dedupe(names), categories, res)
	return res, nil
}

// runFallback sends still-unmapped names to the suggester in fixed-size
// sequential batches and accepts suggestions that name a known active
// category. It returns the names that remain unmapped.
func (r *Resolver) runFallback(ctx context.Context, unresolved []string, categories []model.Category, res *Resolution) []string {
	if len(unresolved) == 0 {
		return nil
	}

	if r.suggester == nil {
		res.Stats.FallbackSkipped = true
		slog.Info("no suggestion provider configured, fallback tier skipped",
			"unmapped", len(unresolved))
		return unresolved
	}

	res.Stats.Provider = r.suggester.Provider()

	known := make([]string, len(categories))
	byNormalizedName := make(map[string]model.Category, len(categories))
	for i, cat := range categories {
		known[i] = cat.Name
		byNormalizedName[model.NormalizeName(cat.Name)] = cat
	}

	resolved := make(map[string]bool)

	for start := 0; start < len(unresolved); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(unresolved) {
			end = len(unresolved)
		}
		batch := unresolved[start:end]

		batchCtx, cancel := context.WithTimeout(ctx, r.cfg.BatchTimeout)
		suggestions, err := r.suggester.Suggest(batchCtx, batch, known)
		cancel()
		if err != nil {
			// A failed batch leaves its names unmapped, nothing more
			slog.Error("fallback suggestion batch failed",
				"batch_size", len(batch),
				"error", err)
			continue
		}

		for _, sug := range suggestions {
			if sug.TargetName == "" {
				continue
			}
			cat, ok := byNormalizedName[model.NormalizeName(sug.TargetName)]
			if !ok {
				slog.Warn("suggestion targets unknown category",
					"source", sug.SourceName,
					"target", sug.TargetName)
				continue
			}

			conf := model.ClampConfidence(sug.Confidence)
			res.Mappings[sug.SourceName] = model.ResolvedCategory{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Confidence:   conf,
			}
			res.Stats.FromLLM++
			resolved[sug.SourceName] = true
			r.writeCache(ctx, sug.SourceName, cat.ID, r.suggester.Provider(), conf)
		}
	}

	var unmapped []string
	for _, name := range unresolved {
		if !resolved[name] {
			unmapped = append(unmapped, name)
		}
	}
	return unmapped
}

// lookupCache is the cache tier: any storage failure is logged and
// treated as a miss so resolution falls through to the next tier.
func (r *Resolver) lookupCache(ctx context.Context, name string) *model.CategoryMapping {
	cached, err := r.store.GetMapping(ctx, name)
	if err != nil {
		slog.Error("mapping cache lookup failed, treating as miss",
			"name", name,
			"error", err)
		return nil
	}
	return cached
}

// writeCache persists a fresh resolution for reuse. Failures are logged
// and swallowed; the in-flight result is returned to the caller anyway.
func (r *Resolver) writeCache(ctx context.Context, name string, categoryID int, provider string, conf float64) {
	err := r.store.SaveMapping(ctx, &model.CategoryMapping{
		SourceNormalized: model.NormalizeName(name),
		CategoryID:       categoryID,
		Provider:         provider,
		Confidence:       conf,
	})
	if err != nil {
		slog.Error("mapping cache write failed, continuing without it",
			"name", name,
			"error", err)
	}
}

// dedupe drops duplicate names, keeping first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
