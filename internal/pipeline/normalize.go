package pipeline

import (
	"strings"

	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/scoring"
)

// MaxNormalizedItems caps highlights and concerns in a ChainResult.
const MaxNormalizedItems = 5

// Normalize clamps every number to [0,100] and keeps at most five
// non-empty highlights and concerns. It is idempotent.
func Normalize(p model.ScorePayload) model.Score {
	return model.Score{
		Score:         scoring.Clamp(float64(p.Score)),
		Purity:        scoring.Clamp(float64(p.Purity)),
		Effectiveness: scoring.Clamp(float64(p.Effectiveness)),
		Safety:        scoring.Clamp(float64(p.Safety)),
		Value:         scoring.Clamp(float64(p.Value)),
		Highlights:    nonEmpty(p.Highlights, MaxNormalizedItems),
		Concerns:      nonEmpty(p.Concerns, MaxNormalizedItems),
	}
}

func nonEmpty(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	for _, s := range items {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
