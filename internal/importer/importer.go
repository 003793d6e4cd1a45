// Package importer orchestrates the two-phase legacy import: analyze
// produces a reviewable mapping proposal, execute applies an approved
// mapping and writes posts, tickets and lines transactionally.
package importer

import (
	"fmt"
	"time"

	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/normalize"
	"github.com/recyclerie/bascule/internal/resolve"
	"github.com/recyclerie/bascule/internal/service"
)

// Options configures one Importer instance.
type Options struct {
	// Actor is the identity reception posts are opened under.
	Actor string
	// ReferenceYear completes dates written as DD/<month-abbrev>.
	ReferenceYear int
	// Progress, when set, is called once per date group during execute.
	Progress func(date time.Time, current, total int)
}

// DefaultActor is the identity used when no actor is configured.
const DefaultActor = "import-legacy"

// Importer composes the resolver and the storage layer into the
// analyze/execute workflow. One instance serves one import session.
type Importer struct {
	resolver *resolve.Resolver
	store    service.Storage
	opts     Options
}

// SetProgress installs the per-date-group progress callback.
func (imp *Importer) SetProgress(fn func(date time.Time, current, total int)) {
	imp.opts.Progress = fn
}

// New creates an Importer, filling in option defaults.
func New(store service.Storage, resolver *resolve.Resolver, opts Options) *Importer {
	if opts.Actor == "" {
		opts.Actor = DefaultActor
	}
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = normalize.DefaultOptions().ReferenceYear
	}
	return &Importer{store: store, resolver: resolver, opts: opts}
}

// validRow is a canonical row that passed per-row validation. The
// category label is still unresolved at this stage.
type validRow struct {
	date        time.Time
	category    string
	destination string
	notes       string
	weightKg    float64
	number      int
}

// validateRows walks the parsed rows, accumulating per-row error
// strings instead of aborting. Valid rows come back in input order.
func (imp *Importer) validateRows(rows []model.RawRow) ([]validRow, []string) {
	var valid []validRow
	var errs []string

	for _, raw := range rows {
		if raw.Date == "" {
			errs = append(errs, fmt.Sprintf("row %d: missing date", raw.Number))
			continue
		}
		date, err := parseRowDate(raw.Date, imp.opts.ReferenceYear)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: unparseable date %q", raw.Number, raw.Date))
			continue
		}
		if raw.Category == "" {
			errs = append(errs, fmt.Sprintf("row %d: missing category", raw.Number))
			continue
		}
		if raw.Weight == "" {
			errs = append(errs, fmt.Sprintf("row %d: missing weight", raw.Number))
			continue
		}
		weight, err := normalize.RoundWeight(raw.Weight)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: invalid weight %q: %v", raw.Number, raw.Weight, err))
			continue
		}

		valid = append(valid, validRow{
			number:      raw.Number,
			date:        date,
			category:    raw.Category,
			destination: raw.Destination,
			notes:       raw.Notes,
			weightKg:    weight,
		})
	}

	return valid, errs
}

// distinctCategories returns the distinct category labels of the valid
// rows, preserving first-seen order.
func distinctCategories(rows []validRow) []string {
	seen := make(map[string]bool, len(rows))
	var names []string
	for _, row := range rows {
		if !seen[row.category] {
			seen[row.category] = true
			names = append(names, row.category)
		}
	}
	return names
}
