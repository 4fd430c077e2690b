package model

import "regexp"

// FactsKind describes where the supplement-facts text came from.
type FactsKind string

const (
	FactsNone        FactsKind = "none"
	FactsStructured  FactsKind = "structured"
	FactsTextPattern FactsKind = "text_pattern"
	FactsOCR         FactsKind = "ocr"
)

// ParseMeta carries parser observability. ParserSteps lists every strategy
// that contributed an accepted field, in acceptance order.
type ParseMeta struct {
	ParserSteps       []string  `json:"parserSteps"`
	FactsKind         FactsKind `json:"factsKind"`
	IngredientsSource string    `json:"ingredientsSource,omitempty"`
}

// ParsedProduct is the parser output for one page. It is not mutated after
// creation.
type ParsedProduct struct {
	Title               string    `json:"title,omitempty"`
	IngredientsRaw      string    `json:"ingredientsRaw,omitempty"`
	SupplementFacts     string    `json:"supplementFacts,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
	NumericDosesPresent bool      `json:"numericDosesPresent"`
	Meta                ParseMeta `json:"meta"`
}

var doseRe = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(?:mg|mcg|µg|μg|g|iu)\b|\d+(?:\.\d+)?\s*%`)

// HasNumericDoses reports whether any text contains a dosage-unit amount.
func HasNumericDoses(texts ...string) bool {
	for _, t := range texts {
		if doseRe.MatchString(t) {
			return true
		}
	}
	return false
}
