package normalize

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Weight rejection reasons.
var (
	ErrWeightUnparseable = errors.New("weight is not a number")
	ErrWeightNonPositive = errors.New("weight must be positive")
)

// RoundWeight parses a raw weight cell (comma or dot decimal separator,
// surrounding whitespace tolerated) and rounds it to two decimals,
// half away from zero. Values that do not parse or are not strictly
// positive are rejected.
//
// Rounding goes through decimal arithmetic so "1.005" style inputs are
// unaffected by binary float artifacts.
func RoundWeight(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0, ErrWeightUnparseable
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrWeightUnparseable
	}

	if d.Sign() <= 0 {
		return 0, ErrWeightNonPositive
	}

	rounded := d.Round(2)
	if rounded.Sign() <= 0 {
		// 0.004 kg rounds to zero; nothing weighable remains
		return 0, ErrWeightNonPositive
	}

	f, _ := rounded.Float64()
	return f, nil
}
