package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_BasicScenario(t *testing.T) {
	input := "Date;Catégorie;Libellé;Poids_kg\n" +
		"25/09/2025;Vaisselle;Lot;15,00\n" +
		";Meubles;Lot;0,57\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, day(2025, 9, 25), result.Rows[0].Date)
	assert.Equal(t, "Vaisselle", result.Rows[0].Category)
	assert.InDelta(t, 15.00, result.Rows[0].WeightKg, 1e-9)

	// Second row fills down the first row's date
	assert.Equal(t, day(2025, 9, 25), result.Rows[1].Date)
	assert.Equal(t, "Meubles", result.Rows[1].Category)
	assert.InDelta(t, 0.57, result.Rows[1].WeightKg, 1e-9)

	assert.Equal(t, 2, result.Stats.TotalRows)
	assert.Equal(t, 2, result.Stats.FinalRows)
	assert.Equal(t, 0, result.Stats.ExcludedRows)
}

func TestNormalize_FillDown(t *testing.T) {
	input := "Date;Catégorie;Poids_kg\n" +
		"01/02/2025;A;1\n" +
		";B;1\n" +
		"n/a;C;1\n" +
		"05/02/2025;D;1\n" +
		";E;1\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)

	want := []time.Time{
		day(2025, 2, 1), day(2025, 2, 1), day(2025, 2, 1),
		day(2025, 2, 5), day(2025, 2, 5),
	}
	for i, w := range want {
		assert.Equal(t, w, result.Rows[i].Date, "row %d", i)
	}
	assert.Equal(t, 1, result.Stats.UnparseableDates) // "n/a"
}

func TestNormalize_OrphanRedistribution(t *testing.T) {
	start := day(2025, 3, 1)
	end := day(2025, 3, 3) // 3-day window

	var sb strings.Builder
	sb.WriteString("Date;Catégorie;Poids_kg\n")
	for i := 0; i < 10; i++ {
		sb.WriteString(";Divers;1,0\n")
	}

	n := New(Options{OrphanRangeStart: start, OrphanRangeEnd: end})
	result, err := n.Normalize(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, result.Rows, 10)
	assert.Equal(t, 10, result.Stats.OrphanRows)

	distinct := make(map[string]bool)
	prev := time.Time{}
	for i, row := range result.Rows {
		// Every assigned date lies inside the window
		assert.False(t, row.Date.Before(start), "row %d before window", i)
		assert.False(t, row.Date.After(end), "row %d after window", i)
		// Dates are non-decreasing in input order
		assert.False(t, row.Date.Before(prev), "row %d decreases", i)
		prev = row.Date
		distinct[row.Date.Format("2006-01-02")] = true
	}

	// 10 orphans over 3 days must touch all 3 dates
	assert.Len(t, distinct, 3)
}

func TestNormalize_OrphansFewerThanDays(t *testing.T) {
	start := day(2025, 3, 1)
	end := day(2025, 3, 10)

	input := "Date;Catégorie;Poids_kg\n;A;1\n;B;1\n"
	n := New(Options{OrphanRangeStart: start, OrphanRangeEnd: end})
	result, err := n.Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	prev := time.Time{}
	for _, row := range result.Rows {
		assert.False(t, row.Date.Before(start))
		assert.False(t, row.Date.After(end))
		assert.False(t, row.Date.Before(prev))
		prev = row.Date
	}
}

func TestNormalize_TotalsRowDiscarded(t *testing.T) {
	input := "TOTAL;;1234,5\n" +
		"Date;Catégorie;Poids_kg\n" +
		"25/09/2025;Vaisselle;2\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Vaisselle", result.Rows[0].Category)
}

func TestNormalize_HeaderSynonyms(t *testing.T) {
	// Accent-free synonyms a hand-edited export might carry
	input := "jour;famille;designation;poids (kg);devenir;remarques\n" +
		"25/09/2025;;Lot de livres;3,2;;belle collection\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "Lot de livres", row.Category) // label fallback
	assert.Equal(t, "Magasin", row.Destination)    // default destination
	assert.Equal(t, "belle collection", row.Notes)
	assert.InDelta(t, 3.2, row.WeightKg, 1e-9)
}

func TestNormalize_DefaultCategoryLabel(t *testing.T) {
	input := "Date;Catégorie;Libellé;Poids_kg\n25/09/2025;;;4,0\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Divers", result.Rows[0].Category)
}

func TestNormalize_MissingColumnsFatal(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no weight", "Date;Catégorie"},
		{"no date", "Catégorie;Poids_kg"},
		{"no category nor label", "Date;Poids_kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Normalize(strings.NewReader(tt.header + "\nx;y\n"))
			assert.ErrorIs(t, err, common.ErrMissingColumns)
		})
	}
}

func TestNormalize_ExclusionTallies(t *testing.T) {
	input := "Date;Catégorie;Poids_kg\n" +
		"25/09/2025;A;2,5\n" +
		"25/09/2025;B;abc\n" +
		"25/09/2025;C;0\n" +
		"25/09/2025;D;-4\n" +
		";;;\n"

	result, err := New(Options{}).Normalize(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Stats.TotalRows)
	assert.Equal(t, 1, result.Stats.FinalRows)
	assert.Equal(t, 4, result.Stats.ExcludedRows)
	assert.Equal(t, 1, result.Stats.UnparseableWeights)
	assert.Equal(t, 2, result.Stats.NonPositiveWeights)
	assert.Equal(t, 1, result.Stats.EmptyRows)
	assert.Equal(t, 1, result.Stats.DateHistogram["2025-09-25"])
}

func TestNormalize_Windows1252Input(t *testing.T) {
	// "Catégorie" with é encoded as 0xE9, the Windows-1252 byte
	raw := []byte("Date;Cat\xe9gorie;Poids_kg\n25/09/2025;Vaisselle;1,5\n")

	result, err := New(Options{}).Normalize(strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Vaisselle", result.Rows[0].Category)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"25/09/2025", day(2025, 9, 25), false},
		{"01/01/2024", day(2024, 1, 1), false},
		{"14/sept", day(2025, 9, 14), false},
		{"3/févr.", day(2025, 2, 3), false},
		{"15/août", day(2025, 8, 15), false},
		{"15/aout", day(2025, 8, 15), false},
		{"2/déc", day(2025, 12, 2), false},
		{"31/févr", time.Time{}, true},
		{"2025-09-25", time.Time{}, true},
		{"septembre", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input, 2025)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundWeight(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr error
	}{
		{"15,00", 15.00, nil},
		{"0,57", 0.57, nil},
		{" 2.5 ", 2.5, nil},
		{"1,005", 1.01, nil}, // half always rounds away from zero
		{"2,675", 2.68, nil}, // no binary float artifact
		{"3,141", 3.14, nil},
		{"0", 0, ErrWeightNonPositive},
		{"0,004", 0, ErrWeightNonPositive}, // rounds to zero
		{"-4,2", 0, ErrWeightNonPositive},
		{"abc", 0, ErrWeightUnparseable},
		{"", 0, ErrWeightUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := RoundWeight(tt.input)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
