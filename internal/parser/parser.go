// Package parser turns raw product-page HTML (and optional OCR text) into a
// ParsedProduct using site selectors, generic structured data, and regex
// text mining, in that order, per field.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/model"
)

const maxOCRFacts = 4000

// Parser extracts products from HTML.
type Parser struct {
	sites []SiteRule
}

// New creates a Parser over sites. A nil table uses the embedded defaults.
func New(sites []SiteRule) (*Parser, error) {
	if sites == nil {
		var err error
		if sites, err = DefaultSites(); err != nil {
			return nil, err
		}
	}
	return &Parser{sites: sites}, nil
}

// field accumulates the winning value and strategy for one product field.
type field struct {
	value    string
	strategy string
}

func (f *field) set(value, strategy string) bool {
	if f.value != "" || value == "" {
		return false
	}
	f.value, f.strategy = value, strategy
	return true
}

// Parse extracts a product from html. ocrText may be empty.
func (p *Parser) Parse(html, pageURL, ocrText string) (model.ParsedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.ParsedProduct{}, eris.Wrap(err, "parser: parse html")
	}

	var title, ingredients, facts field
	factsKind := model.FactsNone
	steps := []string{}
	accept := func(name, strategy string) {
		steps = append(steps, name+":"+strategy)
	}

	// 1. Site-specific selectors.
	host := hostOf(pageURL)
	for _, rule := range p.sites {
		if !rule.Matches(host, html) {
			continue
		}
		src := "site:" + rule.Name
		if title.set(firstText(doc.Selection, rule.Title...), src) {
			accept("title", src)
		}
		if v, _ := selectBlock(doc.Selection, rule.Ingredients, minSelectorIngredients, maxSelectorIngredients); ingredients.set(stripIngredientsLabel(v), src) {
			accept("ingredients", src)
		}
		if v, _ := selectBlock(doc.Selection, rule.Facts, minSelectorFacts, maxSelectorFacts); facts.set(v, src) {
			accept("facts", src)
			factsKind = model.FactsStructured
		}
	}

	// 2. Generic structured data.
	ld := jsonLDProduct(doc)
	for _, s := range genericTitleStrategies {
		if title.value != "" {
			break
		}
		if title.set(s.read(doc, ld), "generic:"+s.name) {
			accept("title", title.strategy)
		}
	}
	if v, _ := selectBlock(doc.Selection, genericIngredientSelectors, minSelectorIngredients, maxSelectorIngredients); ingredients.set(stripIngredientsLabel(v), "generic") {
		accept("ingredients", "generic")
	}
	if v, _ := selectBlock(doc.Selection, genericFactsSelectors, minSelectorFacts, maxSelectorFacts); facts.set(v, "generic") {
		accept("facts", "generic")
		factsKind = model.FactsStructured
	}

	// 3. Regex text mining over visible text plus any JSON-LD description.
	var corpus string
	if ingredients.value == "" || facts.value == "" {
		corpus = pageText(doc.Find("body"))
		if ld != nil && ld.Description != "" {
			corpus += "\n\n" + gapText(ld.Description)
		}
	}
	if ingredients.value == "" {
		if v, ok := TextPatternIngredients(corpus); ok && ingredients.set(v, "text_pattern") {
			accept("ingredients", "text_pattern")
		}
	}
	if facts.value == "" {
		if v, ok := TextPatternFacts(corpus); ok && facts.set(v, "text_pattern") {
			accept("facts", "text_pattern")
			factsKind = model.FactsTextPattern
		}
	}

	// 4. OCR text as a last resort, only when it looks like a label.
	if ocr := cleanText(ocrText); ocr != "" && HasLabelMarker(ocr) {
		if ingredients.value == "" {
			if c := markerCandidates(ocr, ingredientsMarker, ingredientsEnd, maxIngredientsWindow, false); len(c) > 0 && ingredients.set(c[0].Text, "ocr") {
				accept("ingredients", "ocr")
			}
		}
		if facts.value == "" && facts.set(truncate(ocr, maxOCRFacts), "ocr") {
			accept("facts", "ocr")
			factsKind = model.FactsOCR
		}
	}

	warnings := ExtractWarnings(corpusOrBody(corpus, doc))

	ingredientsSource := ingredients.strategy
	if ingredientsSource == "" {
		ingredientsSource = "none"
	}

	return model.ParsedProduct{
		Title:               title.value,
		IngredientsRaw:      ingredients.value,
		SupplementFacts:     facts.value,
		Warnings:            warnings,
		NumericDosesPresent: model.HasNumericDoses(ingredients.value, facts.value),
		Meta: model.ParseMeta{
			ParserSteps:       steps,
			FactsKind:         factsKind,
			IngredientsSource: ingredientsSource,
		},
	}, nil
}

func corpusOrBody(corpus string, doc *goquery.Document) string {
	if corpus != "" {
		return corpus
	}
	return pageText(doc.Find("body"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
