package scoring

import (
	"strings"

	"github.com/sells-group/labelscore/internal/model"
)

// SystemPrompt describes the reply schema and the scoring rubric.
const SystemPrompt = `You are a dietary supplement quality analyst. Score the product from its label.

Reply with a single JSON object and nothing else:
{"score": int, "purity": int, "effectiveness": int, "safety": int, "value": int, "highlights": [string], "concerns": [string]}

All numbers are integers from 0 to 100.
- purity: absence of unnecessary fillers, artificial colors, sweeteners and preservatives; third-party testing claims.
- effectiveness: clinically meaningful doses of well-absorbed ingredient forms; proprietary blends that hide doses score low.
- safety: doses within tolerable upper intake levels, allergen disclosure, label warnings.
- value: ingredient quality and dose per serving relative to typical products in the category.
- score: overall quality, weighted toward effectiveness and safety.
highlights: up to 3 short strengths. concerns: up to 3 short weaknesses.
If information is missing, score conservatively and say what is missing in concerns.`

// UserPrompt renders the product for the scorer.
func UserPrompt(req model.ScoreRequest) string {
	var sb strings.Builder
	sb.WriteString("Product: ")
	sb.WriteString(req.Title)
	sb.WriteString("\n\nIngredients:\n")
	if len(req.Ingredients) == 0 {
		sb.WriteString("(not provided)")
	} else {
		sb.WriteString(strings.Join(req.Ingredients, ", "))
	}
	sb.WriteString("\n\nSupplement facts:\n")
	if strings.TrimSpace(req.Facts) == "" {
		sb.WriteString("(not provided)")
	} else {
		sb.WriteString(req.Facts)
	}
	if len(req.Warnings) > 0 {
		sb.WriteString("\n\nLabel warnings:\n- ")
		sb.WriteString(strings.Join(req.Warnings, "\n- "))
	}
	return sb.String()
}
