package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/model"
)

// MaxListItems caps highlights and concerns in a scorer payload.
const MaxListItems = 3

// Clamp rounds x to the nearest integer within [0,100]. NaN becomes 0.
func Clamp(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, x))))
}

// ParsePayload decodes a scorer reply. The reply must contain a JSON object
// (code fences and surrounding prose are tolerated). Missing or malformed
// numbers become 0 and non-string-array lists become empty.
func ParsePayload(raw string) (model.ScorePayload, error) {
	obj, err := jsonObject(raw)
	if err != nil {
		return model.ScorePayload{}, err
	}
	return model.ScorePayload{
		Score:         number(obj["score"]),
		Purity:        number(obj["purity"]),
		Effectiveness: number(obj["effectiveness"]),
		Safety:        number(obj["safety"]),
		Value:         number(obj["value"]),
		Highlights:    stringList(obj["highlights"], MaxListItems),
		Concerns:      stringList(obj["concerns"], MaxListItems),
	}, nil
}

func jsonObject(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, eris.New("scoring: reply has no json object")
	}
	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "scoring: decode reply")
	}
	return obj, nil
}

func number(v any) int {
	switch n := v.(type) {
	case json.Number:
		return parseNumber(n.String())
	case float64:
		return Clamp(n)
	case string:
		return parseNumber(n)
	default:
		return 0
	}
}

// parseNumber clamps s; values beyond float64 range saturate to a bound.
func parseNumber(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return Clamp(f)
}

// stringList keeps the non-empty strings of v, up to limit.
func stringList(v any, limit int) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
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
