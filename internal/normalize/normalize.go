// Package normalize turns the messy legacy spreadsheet export into
// clean, dated, weighed rows ready for category resolution.
package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/recyclerie/bascule/internal/model"
)

// Options controls the normalization pass.
type Options struct {
	// OrphanRangeStart/End bound the window dateless rows are spread
	// over. The range is inclusive on both ends.
	OrphanRangeStart time.Time
	OrphanRangeEnd   time.Time
	// DefaultCategoryLabel substitutes rows where both the category and
	// the free-text label columns are blank.
	DefaultCategoryLabel string
	// DefaultDestination substitutes a blank destination column.
	DefaultDestination string
	// ReferenceYear completes dates written as DD/<month-abbrev>.
	ReferenceYear int
}

// DefaultOptions returns the settings used for the 2025 legacy import.
func DefaultOptions() Options {
	return Options{
		ReferenceYear:        2025,
		OrphanRangeStart:     time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		OrphanRangeEnd:       time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		DefaultCategoryLabel: "Divers",
		DefaultDestination:   "Magasin",
	}
}

// Normalizer parses the raw legacy tabular layout and emits canonical rows.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer, filling in defaults for zero-valued options.
func New(opts Options) *Normalizer {
	defaults := DefaultOptions()
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = defaults.ReferenceYear
	}
	if opts.OrphanRangeStart.IsZero() {
		opts.OrphanRangeStart = defaults.OrphanRangeStart
	}
	if opts.OrphanRangeEnd.IsZero() || opts.OrphanRangeEnd.Before(opts.OrphanRangeStart) {
		opts.OrphanRangeEnd = defaults.OrphanRangeEnd
	}
	if opts.OrphanRangeEnd.Before(opts.OrphanRangeStart) {
		opts.OrphanRangeEnd = opts.OrphanRangeStart
	}
	if opts.DefaultCategoryLabel == "" {
		opts.DefaultCategoryLabel = defaults.DefaultCategoryLabel
	}
	if opts.DefaultDestination == "" {
		opts.DefaultDestination = defaults.DefaultDestination
	}
	return &Normalizer{opts: opts}
}

// Result carries the canonical rows plus what was counted along the way.
type Result struct {
	Rows  []model.Row
	Stats model.NormalizeStats
}

// columns maps logical fields to their position in the header, -1 when absent.
type columns struct {
	date        int
	category    int
	label       int
	weight      int
	destination int
	notes       int
}

var headerSynonyms = map[string][]string{
	"date":        {"date", "jour"},
	"category":    {"categorie", "cat", "famille"},
	"label":       {"libelle", "designation", "objet"},
	"weight":      {"poids_kg", "poids (kg)", "poids kg", "poids", "kg"},
	"destination": {"destination", "dest", "devenir"},
	"notes":       {"notes", "commentaire", "commentaires", "remarques"},
}

func mapHeader(record []string) columns {
	cols := columns{date: -1, category: -1, label: -1, weight: -1, destination: -1, notes: -1}

	assign := func(target *int, pos int) {
		if *target == -1 {
			*target = pos
		}
	}

	for pos, cell := range record {
		folded := FoldHeader(cell)
		if folded == "" {
			continue
		}
		for logical, synonyms := range headerSynonyms {
			for _, syn := range synonyms {
				if folded != syn {
					continue
				}
				switch logical {
				case "date":
					assign(&cols.date, pos)
				case "category":
					assign(&cols.category, pos)
				case "label":
					assign(&cols.label, pos)
				case "weight":
					assign(&cols.weight, pos)
				case "destination":
					assign(&cols.destination, pos)
				case "notes":
					assign(&cols.notes, pos)
				}
			}
		}
	}

	return cols
}

func (c columns) validate() error {
	var missing []string
	if c.date == -1 {
		missing = append(missing, "date")
	}
	if c.weight == -1 {
		missing = append(missing, "poids")
	}
	if c.category == -1 && c.label == -1 {
		missing = append(missing, "catégorie/libellé")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func cell(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// isTotalsRow detects the non-data first row some exports carry
// ("TOTAL ; ; 1234,5 ; ...").
func isTotalsRow(record []string) bool {
	for _, c := range record {
		folded := FoldHeader(c)
		if folded == "" {
			continue
		}
		return strings.HasPrefix(folded, "total")
	}
	return false
}

// Normalize reads the legacy export and returns canonical rows plus
// statistics. Structural problems (no header, missing required columns)
// are errors; bad rows are excluded and tallied, never fatal.
func (n *Normalizer) Normalize(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	data, err = DecodeBytes(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = SniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	// Discard a leading totals row, then map the header
	if len(records) > 0 && isTotalsRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, common.ErrEmptyFile
	}

	cols := mapHeader(records[0])
	if err := cols.validate(); err != nil {
		return nil, err
	}
	records = records[1:]

	result := &Result{Stats: model.NormalizeStats{DateHistogram: make(map[string]int)}}
	assigner := &dateAssigner{referenceYear: n.opts.ReferenceYear}

	type pendingRow struct {
		row      model.Row
		rowIdx   int
		excluded bool
	}
	var pending []pendingRow

	for i, record := range records {
		result.Stats.TotalRows++
		if isBlank(record) {
			result.Stats.EmptyRows++
			result.Stats.ExcludedRows++
			continue
		}

		p := pendingRow{rowIdx: len(pending)}
		p.row.Number = i + 1

		// Dates first: even a row later excluded for its weight still
		// establishes fill-down context for the rows below it.
		rawDate := cell(record, cols.date)
		date, ok := assigner.assign(p.rowIdx, rawDate)
		if ok {
			p.row.Date = date
		} else {
			result.Stats.OrphanRows++
		}
		if rawDate != "" {
			if _, perr := ParseDate(rawDate, n.opts.ReferenceYear); perr != nil {
				result.Stats.UnparseableDates++
			}
		}

		weight, werr := RoundWeight(cell(record, cols.weight))
		switch {
		case werr == nil:
			p.row.WeightKg = weight
		case errors.Is(werr, ErrWeightNonPositive):
			result.Stats.NonPositiveWeights++
			p.excluded = true
		default:
			result.Stats.UnparseableWeights++
			p.excluded = true
		}

		category := cell(record, cols.category)
		if category == "" {
			category = cell(record, cols.label)
		}
		if category == "" {
			category = n.opts.DefaultCategoryLabel
		}
		p.row.Category = category

		destination := cell(record, cols.destination)
		if destination == "" {
			destination = n.opts.DefaultDestination
		}
		p.row.Destination = destination
		p.row.Notes = cell(record, cols.notes)

		pending = append(pending, p)
	}

	// Spread dateless rows uniformly across the orphan window
	orphanDates := assigner.redistribute(n.opts.OrphanRangeStart, n.opts.OrphanRangeEnd)

	for _, p := range pending {
		if p.row.Date.IsZero() {
			if d, ok := orphanDates[p.rowIdx]; ok {
				p.row.Date = d
			} else {
				p.row.Date = assigner.fallbackDate(n.opts.OrphanRangeStart)
			}
		}
		if p.excluded {
			result.Stats.ExcludedRows++
			continue
		}
		result.Stats.DateHistogram[p.row.Date.Format("2006-01-02")]++
		result.Rows = append(result.Rows, p.row)
	}

	result.Stats.FinalRows = len(result.Rows)

	slog.Info("normalized legacy export",
		"total", result.Stats.TotalRows,
		"final", result.Stats.FinalRows,
		"excluded", result.Stats.ExcludedRows,
		"orphans", result.Stats.OrphanRows)

	return result, nil
}
