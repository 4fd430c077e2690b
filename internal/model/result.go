package model

import (
	"slices"
	"time"
)

// UnknownTitle is the sentinel title used when extraction produced nothing.
const UnknownTitle = "Unknown product"

// Product is the client-facing product view.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Facts       string   `json:"facts"`
	Warnings    []string `json:"warnings"`
}

// Score is the client-facing score view.
type Score struct {
	Score         int      `json:"score"`
	Purity        int      `json:"purity"`
	Effectiveness int      `json:"effectiveness"`
	Safety        int      `json:"safety"`
	Value         int      `json:"value"`
	Highlights    []string `json:"highlights"`
	Concerns      []string `json:"concerns"`
}

// ScoreError describes why scoring failed while extraction succeeded.
type ScoreError struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

// ChainMeta is the observability block of a ChainResult.
type ChainMeta struct {
	Chain       []ChainStep        `json:"chain"`
	FactsSource string             `json:"factsSource"`
	FactsTokens int                `json:"factsTokens"`
	Cached      bool               `json:"cached"`
	TS          time.Time          `json:"ts"`
	Error       string             `json:"error,omitempty"`
	Score       *ScoreError        `json:"score,omitempty"`
	Remediation *RemediationResult `json:"remediation,omitempty"`
}

// ChainResult is the outcome of one extract+score round trip.
type ChainResult struct {
	Product Product   `json:"product"`
	Score   Score     `json:"score"`
	Meta    ChainMeta `json:"meta"`
}

// Trivial reports whether the result carries no usable extraction.
func (r *ChainResult) Trivial() bool {
	return (r.Product.Title == "" || r.Product.Title == UnknownTitle) && len(r.Product.Ingredients) == 0
}

// Clone returns a deep copy.
func (r *ChainResult) Clone() *ChainResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Product.Ingredients = slices.Clone(r.Product.Ingredients)
	out.Product.Warnings = slices.Clone(r.Product.Warnings)
	out.Score.Highlights = slices.Clone(r.Score.Highlights)
	out.Score.Concerns = slices.Clone(r.Score.Concerns)
	out.Meta.Chain = slices.Clone(r.Meta.Chain)
	if r.Meta.Score != nil {
		se := *r.Meta.Score
		out.Meta.Score = &se
	}
	if r.Meta.Remediation != nil {
		rr := *r.Meta.Remediation
		out.Meta.Remediation = &rr
	}
	return &out
}

// CachedEntry is a stored ChainResult with its write time in epoch millis.
type CachedEntry struct {
	Data      ChainResult `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Expired reports whether the entry is older than ttl at now.
func (e *CachedEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-e.Timestamp >= ttl.Milliseconds()
}
