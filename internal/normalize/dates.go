package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// frenchMonths maps accent-folded French month abbreviations to their
// month number. Legacy rows write dates like "14/sept" or "3/févr.".
var frenchMonths = map[string]time.Month{
	"janv": time.January,
	"fev":  time.February,
	"fevr": time.February,
	"mars": time.March,
	"avr":  time.April,
	"mai":  time.May,
	"juin": time.June,
	"juil": time.July,
	"aout": time.August,
	"sept": time.September,
	"oct":  time.October,
	"nov":  time.November,
	"dec":  time.December,
}

// ParseDate accepts exactly two shapes: DD/MM/YYYY, and DD/<abbrev>
// where <abbrev> is a French month abbreviation (the year defaults to
// referenceYear). Anything else is an error.
func ParseDate(raw string, referenceYear int) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 3:
		if t, err := time.Parse("02/01/2006", s); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("date %q does not match DD/MM/YYYY", raw)
	case 2:
		day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("date %q has no valid day", raw)
		}
		abbrev := strings.TrimSuffix(FoldHeader(parts[1]), ".")
		month, ok := frenchMonths[abbrev]
		if !ok {
			return time.Time{}, fmt.Errorf("date %q has unknown month %q", raw, parts[1])
		}
		t := time.Date(referenceYear, month, day, 0, 0, 0, 0, time.UTC)
		// Reject impossible days like 31/févr, which time.Date would
		// silently roll over into the next month.
		if t.Day() != day {
			return time.Time{}, fmt.Errorf("date %q does not exist", raw)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unparseable date %q", raw)
	}
}

// dateAssigner implements fill-down date inheritance with orphan
// buffering. Rows are fed in file order; rows seen before any parseable
// date are orphans and get a date during finalize.
type dateAssigner struct {
	currentDate   time.Time
	lastValidDate time.Time
	orphans       []int // indexes into the row slice, in input order
	referenceYear int
}

// assign resolves the date for the row at index idx. It returns the
// zero time when the row must wait for orphan redistribution.
func (a *dateAssigner) assign(idx int, rawDate string) (time.Time, bool) {
	if t, err := ParseDate(rawDate, a.referenceYear); err == nil {
		a.currentDate = t
		a.lastValidDate = t
		return t, true
	}

	if !a.currentDate.IsZero() {
		// Fill-down from the last parsed date
		return a.currentDate, true
	}

	a.orphans = append(a.orphans, idx)
	return time.Time{}, false
}

// redistribute spreads the buffered orphan rows uniformly across the
// inclusive [start, end] window. Dates are assigned in non-decreasing
// order matching input order; the final date absorbs any remainder.
// It returns the assigned date per orphan index.
func (a *dateAssigner) redistribute(start, end time.Time) map[int]time.Time {
	assigned := make(map[int]time.Time, len(a.orphans))
	if len(a.orphans) == 0 {
		return assigned
	}

	spanDays := int(end.Sub(start).Hours()/24) + 1
	if spanDays < 1 {
		spanDays = 1
	}

	rowsPerDate := float64(len(a.orphans)) / float64(spanDays)

	for i, idx := range a.orphans {
		dayOffset := 0
		if rowsPerDate > 0 {
			dayOffset = int(float64(i) / rowsPerDate)
		}
		if dayOffset >= spanDays {
			dayOffset = spanDays - 1
		}
		assigned[idx] = start.AddDate(0, 0, dayOffset)
	}

	return assigned
}

// fallbackDate covers the guard path for rows that somehow remain
// dateless after redistribution.
func (a *dateAssigner) fallbackDate(rangeStart time.Time) time.Time {
	if !a.lastValidDate.IsZero() {
		return a.lastValidDate
	}
	return rangeStart
}
