package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/normalize"
)

// canonicalColumns is the fixed five-column layout produced by the
// normalization step and consumed by analyze and execute:
// Date;Catégorie;Poids_kg;Destination;Notes.
var canonicalColumns = []string{"date", "categorie", "poids_kg", "destination", "notes"}

// parsedFile is one canonical CSV read into raw rows, header validated.
type parsedFile struct {
	rows []model.RawRow
}

// readCanonical reads a canonical CSV. Header problems are fatal; row
// content is returned verbatim for per-row validation by the caller.
func readCanonical(r io.Reader) (*parsedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	data, err = normalize.DecodeBytes(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = normalize.SniffDelimiter(data)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, common.ErrEmptyFile
	}

	if err := validateCanonicalHeader(records[0]); err != nil {
		return nil, err
	}

	file := &parsedFile{}
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		file.rows = append(file.rows, model.RawRow{
			Number:      i + 1,
			Date:        field(record, 0),
			Category:    field(record, 1),
			Weight:      field(record, 2),
			Destination: field(record, 3),
			Notes:       field(record, 4),
		})
	}

	return file, nil
}

// validateCanonicalHeader checks the five expected columns by folded
// name. Order is fixed; a file with shuffled or missing columns must go
// through the normalizer first.
func validateCanonicalHeader(header []string) error {
	var missing []string
	for i, want := range canonicalColumns {
		if i >= len(header) || normalize.FoldHeader(header[i]) != want {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// parseRowDate accepts the legacy shapes plus the ISO form the
// normalizer itself writes.
func parseRowDate(raw string, referenceYear int) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(raw)); err == nil {
		return t, nil
	}
	return normalize.ParseDate(raw, referenceYear)
}

func field(record []string, pos int) string {
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
