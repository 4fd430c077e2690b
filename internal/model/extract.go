package model

// ExtractRequest is the extraction endpoint body.
type ExtractRequest struct {
	URL           string `json:"url"`
	Proxy         string `json:"proxy,omitempty"`
	ForceScrapfly bool   `json:"forceScrapfly,omitempty"`
}

// ExtractMeta is the `_meta` block of an extraction response.
type ExtractMeta struct {
	Source            string      `json:"source,omitempty"`
	Tried             []string    `json:"tried"`
	ParserSteps       []string    `json:"parserSteps"`
	FactsKind         FactsKind   `json:"factsKind,omitempty"`
	IngredientsSource string      `json:"ingredientsSource,omitempty"`
	Status            Status      `json:"status"`
	Remediation       Remediation `json:"remediation"`
	RemediationNotes  string      `json:"remediation_notes,omitempty"`
	BlockedReason     string      `json:"blockedReason,omitempty"`
	Chain             []ChainStep `json:"chain,omitempty"`
	FirecrawlStatus   int         `json:"firecrawlStatus,omitempty"`
	ScrapflyStatus    int         `json:"scrapflyStatus,omitempty"`
	ScraperAPIStatus  int         `json:"scraperapiStatus,omitempty"`
}

// ExtractResponse flattens ParsedProduct at the top level. Markdown is the
// legacy alias carrying facts, or ingredients when no facts were found.
type ExtractResponse struct {
	Title               string      `json:"title,omitempty"`
	IngredientsRaw      string      `json:"ingredientsRaw,omitempty"`
	SupplementFacts     string      `json:"supplementFacts,omitempty"`
	Warnings            []string    `json:"warnings,omitempty"`
	NumericDosesPresent bool        `json:"numericDosesPresent"`
	Markdown            string      `json:"markdown,omitempty"`
	PageMarkdown        string      `json:"pageMarkdown,omitempty"`
	PageText            string      `json:"pageText,omitempty"`
	Meta                ExtractMeta `json:"_meta"`
}

// Remediation returns the remediation pair carried in the response meta.
func (r *ExtractResponse) Remediation() RemediationResult {
	return RemediationResult{
		Status:      r.Meta.Status,
		Remediation: r.Meta.Remediation,
		Notes:       r.Meta.RemediationNotes,
	}
}
