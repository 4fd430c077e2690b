// Package model defines the data types shared by the extraction, scoring
// and client pipelines.
package model

import "time"

// StepStatus is the outcome of a single provider or scoring attempt.
type StepStatus string

const (
	StepOK    StepStatus = "ok"
	StepError StepStatus = "error"
	StepEmpty StepStatus = "empty"
)

// ChainStep records one attempt made while resolving a request. Steps are
// append-only and ordered by attempt.
type ChainStep struct {
	Provider  string     `json:"provider"`
	Attempt   int        `json:"attempt"`
	Status    StepStatus `json:"status"`
	ElapsedMs int64      `json:"elapsedMs"`
	HTTPCode  int        `json:"httpCode,omitempty"`
	Hint      string     `json:"hint,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewStep builds a ChainStep stamped with the current time.
func NewStep(provider string, attempt int, status StepStatus, elapsed time.Duration) ChainStep {
	return ChainStep{
		Provider:  provider,
		Attempt:   attempt,
		Status:    status,
		ElapsedMs: elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}

// StatusCodes returns the non-zero HTTP codes observed across steps, in order.
func StatusCodes(steps []ChainStep) []int {
	var codes []int
	for _, s := range steps {
		if s.HTTPCode != 0 {
			codes = append(codes, s.HTTPCode)
		}
	}
	return codes
}

// Tried returns the distinct provider names in first-attempt order.
func Tried(steps []ChainStep) []string {
	seen := make(map[string]bool, len(steps))
	var names []string
	for _, s := range steps {
		if seen[s.Provider] {
			continue
		}
		seen[s.Provider] = true
		names = append(names, s.Provider)
	}
	return names
}
