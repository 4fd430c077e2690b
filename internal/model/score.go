package model

import "time"

// CodeQuotaExceeded is the error code reported when the LLM vendor quota is
// exhausted.
const CodeQuotaExceeded = "openrouter_quota"

// ScoreRequest is the canonical scoring input after boundary normalization.
type ScoreRequest struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients,omitempty"`
	Facts       string   `json:"facts,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ScorePayload is the validated scorer output. Numeric fields are within
// [0,100]; highlights and concerns hold non-empty strings only.
type ScorePayload struct {
	Score         int      `json:"score"`
	Purity        int      `json:"purity"`
	Effectiveness int      `json:"effectiveness"`
	Safety        int      `json:"safety"`
	Value         int      `json:"value"`
	Highlights    []string `json:"highlights"`
	Concerns      []string `json:"concerns"`
}

// ScoreMeta is attached to a scoring endpoint response.
type ScoreMeta struct {
	Model string      `json:"model"`
	TS    time.Time   `json:"ts"`
	Chain []ChainStep `json:"chain"`
}

// ScoreResponse is the scoring endpoint body.
type ScoreResponse struct {
	ScorePayload
	Meta ScoreMeta `json:"_meta"`
}
