package resolve

import (
	"math"

	"github.com/agnivade/levenshtein"
	"github.com/recyclerie/bascule/internal/model"
)

// similarity returns a normalized edit-distance ratio in [0, 1] between
// two labels, compared in their normalized (lower-cased, trimmed) form.
func similarity(a, b string) float64 {
	na := model.NormalizeName(a)
	nb := model.NormalizeName(b)

	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}

	distance := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(distance)/float64(longest)
}

// confidence scales a similarity ratio to the 0-100 scale used
// everywhere else, at two-decimal granularity.
func confidence(ratio float64) float64 {
	return model.ClampConfidence(math.Round(ratio*10000) / 100)
}

// bestMatch scans every category linearly and keeps the maximum score.
// Ties resolve to the first category enumerated.
func bestMatch(name string, categories []model.Category) (model.Category, float64) {
	var best model.Category
	bestScore := -1.0

	for _, cat := range categories {
		if score := similarity(name, cat.Name); score > bestScore {
			best = cat
			bestScore = score
		}
	}

	if bestScore < 0 {
		return model.Category{}, 0
	}
	return best, bestScore
}
