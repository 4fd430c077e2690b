package remediation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/labelscore/internal/model"
)

// Quality thresholds for a successful extraction.
const (
	MinIngredientsChars = 100
	MinFactsChars       = 200
)

// Input is everything Classify looks at.
type Input struct {
	HTMLReturned bool
	// StatusCodes are every HTTP status a provider reported, in order.
	StatusCodes []int
	Parsed      *model.ParsedProduct
	// BlockedDomain is the blocklist pattern the URL matched, if any.
	BlockedDomain string
}

// Classify maps an extraction outcome to a status and remediation. Rules
// are evaluated in order and the first match wins.
func Classify(in Input) model.RemediationResult {
	if in.BlockedDomain != "" {
		return result(model.StatusBlockedBySite, model.RemediationManualQA,
			fmt.Sprintf("domain %s is on the blocklist", in.BlockedDomain))
	}

	if !in.HTMLReturned {
		codes := in.StatusCodes
		switch {
		case slices.Contains(codes, 404):
			return result(model.StatusDeadURL, model.RemediationFixURL, "provider reported 404")
		case slices.Contains(codes, 403):
			return result(model.StatusProviderError, model.RemediationRotateKey, "provider reported 403")
		case slices.Contains(codes, 429):
			return result(model.StatusProviderError, model.RemediationUpgradePlan, "provider quota exhausted (429)")
		default:
			return result(model.StatusProviderError, model.RemediationSwitchProvider, noHTMLNote(codes))
		}
	}

	if missing := shortfalls(in.Parsed); len(missing) > 0 {
		return result(model.StatusParserFail, model.RemediationSiteSpecificParser, strings.Join(missing, "; "))
	}
	return result(model.StatusSuccess, model.RemediationNone, "")
}

func result(s model.Status, r model.Remediation, notes string) model.RemediationResult {
	return model.RemediationResult{Status: s, Remediation: r, Notes: notes}
}

func noHTMLNote(codes []int) string {
	if len(codes) == 0 {
		return "no provider returned html"
	}
	return fmt.Sprintf("no provider returned html (statuses %v)", codes)
}

// shortfalls lists which quality thresholds p misses.
func shortfalls(p *model.ParsedProduct) []string {
	if p == nil {
		return []string{"nothing parsed"}
	}
	var out []string
	if strings.TrimSpace(p.Title) == "" {
		out = append(out, "missing title")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.IngredientsRaw)); n < MinIngredientsChars {
		out = append(out, fmt.Sprintf("ingredients %d/%d chars", n, MinIngredientsChars))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.SupplementFacts)); n < MinFactsChars {
		out = append(out, fmt.Sprintf("facts %d/%d chars", n, MinFactsChars))
	}
	return out
}
