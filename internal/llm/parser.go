package llm

import (
	"strconv"
	"strings"

	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/service"
)

// parseSuggestions parses the line-oriented suggestion response:
//
//	source name | target category | confidence
//
// One line per input name. A dash or empty target means "no idea".
// Malformed lines are skipped, stray prose around the list is
// tolerated, and confidences are clamped to [0, 100].
func parseSuggestions(content string, batch []string) []service.Suggestion {
	inBatch := make(map[string]string, len(batch))
	for _, name := range batch {
		inBatch[model.NormalizeName(name)] = name
	}

	var suggestions []service.Suggestion

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			// Prose, headers, markdown fences: skip and keep going
			continue
		}

		source := strings.TrimSpace(parts[0])
		target := strings.TrimSpace(parts[1])
		scoreStr := strings.TrimSpace(parts[2])

		// Only accept lines that echo a name we actually asked about
		original, ok := inBatch[model.NormalizeName(source)]
		if !ok {
			continue
		}

		if target == "" || target == "-" || strings.EqualFold(target, "aucune") {
			continue
		}

		score, err := strconv.ParseFloat(strings.TrimSuffix(scoreStr, "%"), 64)
		if err != nil {
			// Strip any non-numeric noise and retry once
			clean := strings.Map(func(r rune) rune {
				if (r >= '0' && r <= '9') || r == '.' || r == '-' {
					return r
				}
				return -1
			}, scoreStr)
			score, err = strconv.ParseFloat(clean, 64)
			if err != nil {
				continue
			}
		}

		suggestions = append(suggestions, service.Suggestion{
			SourceName: original,
			TargetName: target,
			Confidence: model.ClampConfidence(score),
		})
	}

	return suggestions
}
