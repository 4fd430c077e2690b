package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// titleStrategy reads a title candidate from the document.
type titleStrategy struct {
	name string
	read func(doc *goquery.Document, ld *ldProduct) string
}

// genericTitleStrategies are tried in order after site rules.
var genericTitleStrategies = []titleStrategy{
	{"og_title", func(doc *goquery.Document, _ *ldProduct) string {
		return metaContent(doc, `meta[property="og:title"]`)
	}},
	{"meta_title", func(doc *goquery.Document, _ *ldProduct) string {
		return metaContent(doc, `meta[name="title"]`)
	}},
	{"json_ld", func(_ *goquery.Document, ld *ldProduct) string {
		if ld == nil {
			return ""
		}
		return ld.Name
	}},
	{"h1", func(doc *goquery.Document, _ *ldProduct) string {
		return firstText(doc.Selection, "h1[itemprop=name]", ".product-title h1", "h1.product-title", "h1.product-name", "h1")
	}},
	{"title_tag", func(doc *goquery.Document, _ *ldProduct) string {
		return trimTitleSuffix(doc.Find("title").First().Text())
	}},
}

// Common e-commerce containers for ingredients and facts.
var (
	genericIngredientSelectors = []string{
		"#ingredients", ".ingredients", "[itemprop=ingredients]",
		"[id*=ingredient]", "[class*=ingredient]", "[data-tab*=ingredient]",
	}
	genericFactsSelectors = []string{
		"#supplement-facts", ".supplement-facts", "table.supplement-facts",
		"[id*=supplement-facts]", "[class*=supplement-facts]", "[class*=supplementFacts]",
		"[id*=nutrition-facts]", "[class*=nutrition-facts]",
	}
)

// Size bounds for selector candidates. The upper bound rejects page-wide
// wrappers whose class happens to mention ingredients.
const (
	minSelectorIngredients = MinIngredientsLen
	maxSelectorIngredients = 4000
	minSelectorFacts       = 100
	maxSelectorFacts       = 8000
)

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return oneLine(v)
}

// firstText returns the first non-empty text among selectors.
func firstText(root *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := oneLine(root.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// selectBlock returns the text of the first element matched by selectors
// whose length is within [minLen, maxLen].
func selectBlock(root *goquery.Selection, selectors []string, minLen, maxLen int) (string, string) {
	for _, s := range selectors {
		var found string
		root.Find(s).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			t := selectionText(el)
			if len(t) >= minLen && len(t) <= maxLen {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found, s
		}
	}
	return "", ""
}

// trimTitleSuffix drops a trailing " | Store" or " - Store" segment.
func trimTitleSuffix(t string) string {
	t = oneLine(t)
	for _, sep := range []string{" | ", " – ", " — ", " - "} {
		if i := strings.LastIndex(t, sep); i > 0 {
			t = strings.TrimSpace(t[:i])
			break
		}
	}
	return t
}

// ldProduct is the subset of a schema.org Product we read.
type ldProduct struct {
	Name        string
	Description string
}

// jsonLDProduct finds the first schema.org Product in the page's JSON-LD
// blocks.
func jsonLDProduct(doc *goquery.Document) *ldProduct {
	var found *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		found = findLDProduct(v)
		return found == nil
	})
	return found
}

func findLDProduct(v any) *ldProduct {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if p := findLDProduct(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isLDType(t["@type"], "Product") {
			name, _ := t["name"].(string)
			desc, _ := t["description"].(string)
			if name != "" || desc != "" {
				return &ldProduct{Name: oneLine(name), Description: desc}
			}
		}
		if g, ok := t["@graph"]; ok {
			return findLDProduct(g)
		}
	}
	return nil
}

func isLDType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}
