package parser

import (
	"regexp"
	"strings"
)

const (
	maxWarnings   = 3
	maxWarningLen = 300
)

var warningRe = regexp.MustCompile(`(?i)\b(?:warnings?|caution)\s*[:.]\s*([^\n]{10,})`)

// ExtractWarnings returns up to three distinct label warnings found in text.
func ExtractWarnings(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range warningRe.FindAllStringSubmatch(text, -1) {
		w := strings.TrimSpace(m[1])
		if len(w) > maxWarningLen {
			w = truncateAtSentence(w, maxWarningLen)
		}
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
		if len(out) == maxWarnings {
			break
		}
	}
	return out
}

// truncateAtSentence cuts s to at most n bytes, preferring the last
// sentence end.
func truncateAtSentence(s string, n int) string {
	s = s[:n]
	if i := strings.LastIndex(s, ". "); i > n/2 {
		return s[:i+1]
	}
	return strings.TrimSpace(s)
}
