package model

import "time"

// RawRow is one line of the legacy export before any cleaning.
// Fields hold the cell text verbatim; Number is 1-based and counts data
// rows (header excluded) for diagnostics.
type RawRow struct {
	Date        string
	Category    string
	Label       string
	Weight      string
	Destination string
	Notes       string
	Number      int
}

// Row is a cleaned, canonical line ready for resolution and import.
// Date is always populated after normalization; WeightKg is positive and
// rounded to two decimals.
type Row struct {
	Date        time.Time
	Category    string
	Destination string
	Notes       string
	WeightKg    float64
	Number      int
}

// NormalizeStats tallies what the normalizer kept and dropped.
type NormalizeStats struct {
	DateHistogram      map[string]int
	TotalRows          int
	EmptyRows          int
	UnparseableDates   int
	OrphanRows         int
	UnparseableWeights int
	NonPositiveWeights int
	ExcludedRows       int
	FinalRows          int
}
