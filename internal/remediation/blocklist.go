// Package remediation maps extraction outcomes to a status and the operator
// action that would fix them.
package remediation

import (
	"net/url"
	"path"
	"strings"
)

// DefaultBlockedDomains are retailers that refuse automated access outright.
var DefaultBlockedDomains = []string{
	"costco.com",
	"samsclub.com",
	"bjs.com",
	"instacart.com",
}

// Blocklist matches URLs against domain patterns. A pattern is a host
// ("costco.com"), optionally followed by a glob path ("target.com/p/*").
// A host pattern matches the host itself and any subdomain.
type Blocklist struct {
	patterns []string
}

// NewBlocklist creates a Blocklist from patterns. Falls back to
// DefaultBlockedDomains if none are provided.
func NewBlocklist(patterns []string) *Blocklist {
	if len(patterns) == 0 {
		patterns = DefaultBlockedDomains
	}
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.TrimPrefix(strings.TrimPrefix(p, "https://"), "http://")
		p = strings.TrimPrefix(p, "www.")
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Blocklist{patterns: normalized}
}

// Patterns returns the configured patterns.
func (b *Blocklist) Patterns() []string {
	return b.patterns
}

// Match returns the pattern blocking rawURL, or "" when the URL is allowed.
// Unparseable URLs are never blocked; they fail later as dead URLs.
func (b *Blocklist) Match(rawURL string) string {
	if b == nil {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	urlPath := strings.ToLower(u.Path)

	for _, pattern := range b.patterns {
		domain, glob, hasPath := strings.Cut(pattern, "/")
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if !hasPath || matchSegmented("/"+glob, urlPath) {
			return pattern
		}
	}
	return ""
}

// matchSegmented performs glob matching where a pattern like "/p/*"
// matches both "/p/item" and "/p/deep/nested/item".
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
