package pipeline

import (
	"regexp"
	"slices"
)

// DosageConcern is added when ingredients are listed without amounts.
const DosageConcern = "No per-ingredient dosages disclosed"

var (
	missingIngredientList = regexp.MustCompile(`(?i)\b(?:no|missing|lacks?|lacking|without|absent|unavailable|not (?:provided|listed|disclosed|available))\b[^.]*\bingredients? list|\bingredients? list\b[^.]*\b(?:missing|not (?:provided|listed|disclosed|available)|unavailable|absent)\b`)
	dosageDisclosure      = regexp.MustCompile(`(?i)\b(?:no|missing|undisclosed|unspecified|hidden|proprietary)\b[^.]*\bdos(?:e|es|age|ages|ing)\b|\bdos(?:e|es|age|ages|ing)\b[^.]*\b(?:not (?:disclosed|listed|provided)|missing|undisclosed|unspecified)\b`)
)

// AdjustConcerns reconciles scorer concerns with what extraction found.
// When ingredients exist but carry no numeric doses, concerns claiming the
// ingredient list is missing are dropped and DosageConcern is prepended
// unless a dosage concern is already present.
func AdjustConcerns(concerns []string, ingredientsFound, numericDoses bool) []string {
	out := slices.Clone(concerns)
	if !ingredientsFound || numericDoses {
		return out
	}

	out = slices.DeleteFunc(out, missingIngredientList.MatchString)
	if !slices.ContainsFunc(out, dosageDisclosure.MatchString) {
		out = append([]string{DosageConcern}, out...)
	}
	return out
}
