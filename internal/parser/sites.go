package parser

import (
	_ "embed"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var defaultSitesYAML []byte

// SiteRule holds the selectors for one retailer or storefront platform.
type SiteRule struct {
	Name        string   `yaml:"name"`
	Hosts       []string `yaml:"hosts"`
	Markers     []string `yaml:"markers"`
	Title       []string `yaml:"title"`
	Ingredients []string `yaml:"ingredients"`
	Facts       []string `yaml:"facts"`
}

// Matches reports whether the rule applies to a page.
func (r SiteRule) Matches(host, html string) bool {
	for _, h := range r.Hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	for _, m := range r.Markers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}

// DefaultSites returns the embedded site table.
func DefaultSites() ([]SiteRule, error) {
	return parseSites(defaultSitesYAML)
}

// LoadSites reads a site table from a YAML file.
func LoadSites(path string) ([]SiteRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parser: read site table %s", path)
	}
	return parseSites(data)
}

func parseSites(data []byte) ([]SiteRule, error) {
	var wrapper struct {
		Sites []SiteRule `yaml:"sites"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "parser: parse site table")
	}
	for i, s := range wrapper.Sites {
		if s.Name == "" {
			return nil, eris.Errorf("parser: site rule %d has no name", i)
		}
	}
	return wrapper.Sites, nil
}

// hostOf returns the lower-cased host of rawURL without a "www." prefix.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
