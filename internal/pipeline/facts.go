package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Facts sources in priority order.
const (
	FactsFromSupplementFacts = "supplement_facts"
	FactsFromMarkdown        = "markdown"
	FactsFromPageText        = "page_text"
	FactsFromIngredients     = "ingredients"
	FactsFromNone            = "none"
)

// Facts selection limits.
const (
	MinFactsTokens = 2
	MaxFactsChars  = 3000
	reviewWindow   = 300
)

// TokenRule is one label token counted by TokenScore.
type TokenRule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  int
}

// FactsTokens are the label-panel tokens a facts candidate is scored on.
var FactsTokens = []TokenRule{
	{"panel_heading", regexp.MustCompile(`(?i)\b(?:supplement|nutrition) facts\b`), 1},
	{"serving_size", regexp.MustCompile(`(?i)\bserving size\b`), 1},
	{"servings_per_container", regexp.MustCompile(`(?i)\bservings per container\b`), 1},
	{"amount_per_serving", regexp.MustCompile(`(?i)\bamount per serving\b`), 1},
	{"daily_value", regexp.MustCompile(`(?i)%\s*(?:daily value|dv)\b|\bdaily value\b`), 1},
	{"dose_units", regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:mg|mcg|µg|μg|iu)\b`), 1},
	{"other_ingredients", regexp.MustCompile(`(?i)\bother ingredients\b`), 1},
}

// reviewKeywords mark review or FAQ content near a facts match.
var reviewKeywords = regexp.MustCompile(`(?i)\breviews?\b|\bfaqs?\b|\btestimonials?\b|\bratings?\b|\bq\s*&\s*a\b|\bstars?\b`)

// TokenScore sums the weights of every rule matching text.
func TokenScore(text string) int {
	score := 0
	for _, r := range FactsTokens {
		if r.Pattern.MatchString(text) {
			score += r.Weight
		}
	}
	return score
}

// anchor returns the offset of the earliest token match, or -1.
func anchor(text string) int {
	first := -1
	for _, r := range FactsTokens {
		if loc := r.Pattern.FindStringIndex(text); loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	return first
}

// LooksLikeReview reports whether review or FAQ keywords occur within 300
// characters of the first facts token.
func LooksLikeReview(text string) bool {
	at := anchor(text)
	if at < 0 {
		return false
	}
	lo := max(0, at-reviewWindow)
	hi := min(len(text), at+reviewWindow)
	return reviewKeywords.MatchString(text[lo:hi])
}

// FactsSelection is the facts text chosen for scoring.
type FactsSelection struct {
	Source string
	Text   string
	Tokens int
}

// FactsInput holds the candidate texts for SelectFacts.
type FactsInput struct {
	SupplementFacts string
	Markdown        string
	PageText        string
	Ingredients     []string
}

// SelectFacts walks the candidates in fixed priority order and returns the
// first with a token score of at least 2 that does not look like review
// content. The synthesized ingredients string is the unconditional last
// resort. Priority beats score: a qualifying earlier candidate wins even
// when a later one scores higher.
func SelectFacts(in FactsInput) FactsSelection {
	candidates := []struct {
		source string
		text   string
	}{
		{FactsFromSupplementFacts, in.SupplementFacts},
		{FactsFromMarkdown, in.Markdown},
		{FactsFromPageText, in.PageText},
	}
	for _, c := range candidates {
		text := strings.TrimSpace(c.text)
		if text == "" {
			continue
		}
		tokens := TokenScore(text)
		if tokens < MinFactsTokens || LooksLikeReview(text) {
			continue
		}
		if c.source != FactsFromSupplementFacts {
			text = fromAnchor(text)
		}
		return FactsSelection{Source: c.source, Text: capRunes(text, MaxFactsChars), Tokens: tokens}
	}

	if len(in.Ingredients) > 0 {
		return FactsSelection{
			Source: FactsFromIngredients,
			Text:   capRunes("Ingredients: "+strings.Join(in.Ingredients, ", "), MaxFactsChars),
		}
	}
	return FactsSelection{Source: FactsFromNone}
}

var panelHeading = FactsTokens[0].Pattern

// fromAnchor drops page chrome before a facts panel heading so the cap keeps
// the panel itself.
func fromAnchor(text string) string {
	if loc := panelHeading.FindStringIndex(text); loc != nil {
		return text[loc[0]:]
	}
	return text
}

func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
