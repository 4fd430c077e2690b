package parser

import (
	"regexp"
	"strings"
)

// Minimum lengths a text-pattern candidate must reach.
const (
	MinIngredientsLen = 30
	MinFactsLen       = 300
)

// Upper bounds on how far past a marker a candidate may extend.
const (
	maxIngredientsWindow = 1500
	maxFactsWindow       = 3000
)

// CandidateRule is one weighted signal of the candidate heuristic.
type CandidateRule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  int
}

// CandidateRules score label-like text up and marketing copy down. The
// keyword lists are a seed and can be extended per retailer.
var CandidateRules = []CandidateRule{
	{"dosage_units", regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(?:mg|mcg|μg|g|iu)\b|\d+(?:\.\d+)?\s*%`), 1},
	{"allergen_parenthetical", regexp.MustCompile(`(?i)\([^)]*\b(?:milk|soy|wheat|eggs?|fish|shellfish|tree nuts?|peanuts?|gluten|sesame|coconut)\b[^)]*\)`), 1},
	{"label_adjectives", regexp.MustCompile(`(?i)\b(?:organic|natural|artificial|vegetable|vegetarian|hydrolyzed|purified|extract|powder|cellulose|stearate|dioxide|gelatin|blend)\b`), 1},
	{"decimals", regexp.MustCompile(`\d+\.\d+`), 1},
	{"marketing_copy", regexp.MustCompile(`(?i)\b(?:legacy|smooth|delicious)\b`), -2},
}

// ScoreCandidate sums the weights of every rule matching text.
func ScoreCandidate(text string) int {
	score := 0
	for _, r := range CandidateRules {
		if r.Pattern.MatchString(text) {
			score += r.Weight
		}
	}
	return score
}

var (
	ingredientsMarker = regexp.MustCompile(`(?i)\b(?:other\s+|inactive\s+)?ingredients\s*[:：]`)
	factsMarker       = regexp.MustCompile(`(?i)\b(?:supplement|nutrition)\s+facts\b`)

	// Terminators end a candidate at the next section of the label.
	ingredientsEnd = regexp.MustCompile(`(?i)\n\s*\n|\b(?:warnings?|caution|allergen information|contains|directions|suggested use|recommended use|supplement facts|storage|distributed by|manufactured (?:by|for))\s*[:.]`)
	factsEnd       = regexp.MustCompile(`(?i)\b(?:warnings?|caution|directions|suggested use|recommended use|distributed by|manufactured (?:by|for)|reviews?)\s*[:.]`)

	ingredientsLabel = regexp.MustCompile(`(?i)^\s*(?:other\s+|inactive\s+)?ingredients\s*[:：\-]\s*`)
)

// candidate is a marker-anchored slice of page text.
type candidate struct {
	Text  string
	Score int
}

// markerCandidates returns every window following marker, cut at the first
// terminator. When keepMarker is set the marker itself starts the window.
func markerCandidates(text string, marker, end *regexp.Regexp, window int, keepMarker bool) []candidate {
	var out []candidate
	for _, loc := range marker.FindAllStringIndex(text, -1) {
		start := loc[1]
		if keepMarker {
			start = loc[0]
		}
		stop := min(len(text), loc[1]+window)
		seg := text[start:stop]

		// Search for the terminator after the marker so a "Supplement
		// Facts" heading never terminates itself.
		// Leading line breaks (a marker in its own element) are skipped too.
		offset := loc[1] - start
		rest := seg[offset:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		offset += len(rest) - len(trimmed)
		if m := end.FindStringIndex(trimmed); m != nil {
			seg = seg[:offset+m[0]]
		}
		seg = cleanText(seg)
		if seg == "" {
			continue
		}
		out = append(out, candidate{Text: seg, Score: ScoreCandidate(seg)})
	}
	return out
}

// best returns the highest-scoring candidate at least minLen long with a
// positive score. Earlier candidates win ties.
func best(cands []candidate, minLen int) (candidate, bool) {
	var winner candidate
	found := false
	for _, c := range cands {
		if len(c.Text) < minLen || c.Score <= 0 {
			continue
		}
		if !found || c.Score > winner.Score {
			winner = c
			found = true
		}
	}
	return winner, found
}

// TextPatternIngredients mines an ingredients list from visible text.
func TextPatternIngredients(text string) (string, bool) {
	c, ok := best(markerCandidates(text, ingredientsMarker, ingredientsEnd, maxIngredientsWindow, false), MinIngredientsLen)
	if !ok {
		return "", false
	}
	return strings.TrimRight(c.Text, " .;,"), true
}

// TextPatternFacts mines a supplement-facts block from visible text.
func TextPatternFacts(text string) (string, bool) {
	c, ok := best(markerCandidates(text, factsMarker, factsEnd, maxFactsWindow, true), MinFactsLen)
	if !ok {
		return "", false
	}
	return c.Text, true
}

// HasLabelMarker reports whether text carries an ingredients or supplement
// facts marker.
func HasLabelMarker(text string) bool {
	return ingredientsMarker.MatchString(text) || factsMarker.MatchString(text)
}

// stripIngredientsLabel removes a leading "Ingredients:" label.
func stripIngredientsLabel(s string) string {
	return strings.TrimSpace(ingredientsLabel.ReplaceAllString(s, ""))
}
