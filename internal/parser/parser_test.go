package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/labelscore/internal/model"
)

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(nil)
	require.NoError(t, err)
	return p
}

const shopifyPage = `<html><head>
<script src="https://cdn.shopify.com/s/files/theme.js"></script>
<meta property="og:title" content="Magnesium | Example Co">
</head><body>
<h1 class="product__title">Magnesium Glycinate 200mg</h1>
<div data-tab="ingredients">Ingredients: Magnesium (as magnesium bisglycinate chelate), hypromellose (vegetable capsule), rice flour.</div>
<div class="supplement-facts">Supplement Facts
Serving Size 2 Capsules. Servings Per Container 60.
Amount Per Serving: Magnesium (as magnesium bisglycinate chelate) 200 mg, 48% Daily Value.</div>
</body></html>`

func TestParse_SiteSelectors(t *testing.T) {
	p := newParser(t)
	got, err := p.Parse(shopifyPage, "https://www.example-shop.com/products/magnesium", "")
	require.NoError(t, err)

	assert.Equal(t, "Magnesium Glycinate 200mg", got.Title)
	assert.Equal(t, "Magnesium (as magnesium bisglycinate chelate), hypromellose (vegetable capsule), rice flour.", got.IngredientsRaw)
	assert.True(t, strings.HasPrefix(got.SupplementFacts, "Supplement Facts"))
	assert.True(t, got.NumericDosesPresent)
	assert.Equal(t, model.FactsStructured, got.Meta.FactsKind)
	assert.Equal(t, "site:shopify", got.Meta.IngredientsSource)
	assert.Equal(t, []string{
		"title:site:shopify",
		"ingredients:site:shopify",
		"facts:site:shopify",
	}, got.Meta.ParserSteps)
}

func TestParse_HostRule(t *testing.T) {
	p := newParser(t)
	html := `<html><body><span id="productTitle">  Nature Made Vitamin D3  </span></body></html>`
	got, err := p.Parse(html, "https://smile.amazon.com/dp/B0001", "")
	require.NoError(t, err)
	assert.Equal(t, "Nature Made Vitamin D3", got.Title)
	assert.Contains(t, got.Meta.ParserSteps, "title:site:amazon")
}

const genericPage = `<html><head><title>Fish Oil 1000mg | Example Store</title>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"WebSite","name":"Example"},{"@type":["Product"],"name":"Omega-3 Fish Oil","description":"Wild-caught omega-3."}]}</script>
</head><body>
<h1>Fish Oil</h1>
<p>Ingredients: Fish oil concentrate (fish), gelatin, glycerin, purified water, natural lemon flavor, mixed tocopherols.</p>
<p>Warning: Consult your physician before use if you are pregnant or nursing.</p>
</body></html>`

func TestParse_GenericAndTextPattern(t *testing.T) {
	p := newParser(t)
	got, err := p.Parse(genericPage, "https://store.example.com/fish-oil", "")
	require.NoError(t, err)

	assert.Equal(t, "Omega-3 Fish Oil", got.Title)
	assert.Equal(t, "Fish oil concentrate (fish), gelatin, glycerin, purified water, natural lemon flavor, mixed tocopherols", got.IngredientsRaw)
	assert.Empty(t, got.SupplementFacts)
	assert.False(t, got.NumericDosesPresent)
	assert.Equal(t, model.FactsNone, got.Meta.FactsKind)
	assert.Equal(t, "text_pattern", got.Meta.IngredientsSource)
	assert.Equal(t, []string{"title:generic:json_ld", "ingredients:text_pattern"}, got.Meta.ParserSteps)
	assert.Equal(t, []string{"Consult your physician before use if you are pregnant or nursing."}, got.Warnings)
}

const factsTablePage = `<html><body>
<h1>Vitamin D3 + Omega-3</h1>
<div><h2>Supplement Facts</h2><table>
<tr><td>Serving Size 1 Softgel</td></tr>
<tr><td>Servings Per Container 120</td></tr>
<tr><td>Amount Per Serving</td><td>% Daily Value</td></tr>
<tr><td>Calories</td><td>10</td></tr>
<tr><td>Total Fat</td><td>1 g</td><td>1%*</td></tr>
<tr><td>Vitamin D3 (as cholecalciferol)</td><td>125 mcg (5000 IU)</td><td>625%</td></tr>
<tr><td>Vitamin E (as d-alpha tocopherol)</td><td>1.5 mg</td><td>10%</td></tr>
<tr><td>Omega-3 Fatty Acids</td><td>1000 mg</td><td>**</td></tr>
<tr><td>EPA (Eicosapentaenoic Acid)</td><td>600 mg</td><td>**</td></tr>
<tr><td>DHA (Docosahexaenoic Acid)</td><td>400 mg</td><td>**</td></tr>
<tr><td>* Percent Daily Values are based on a 2,000 calorie diet.</td></tr>
<tr><td>** Daily Value not established.</td></tr>
</table></div>
<p>Other ingredients: Gelatin, glycerin, purified water.</p>
<p>Suggested use: Take one softgel daily with food.</p>
</body></html>`

func TestParse_TextPatternFacts(t *testing.T) {
	p := newParser(t)
	got, err := p.Parse(factsTablePage, "https://brand.example.com/d3", "")
	require.NoError(t, err)

	assert.Equal(t, "Vitamin D3 + Omega-3", got.Title)
	assert.Equal(t, "Gelatin, glycerin, purified water", got.IngredientsRaw)
	assert.True(t, strings.HasPrefix(got.SupplementFacts, "Supplement Facts"))
	assert.Contains(t, got.SupplementFacts, "125 mcg (5000 IU)")
	assert.NotContains(t, got.SupplementFacts, "Suggested use")
	assert.GreaterOrEqual(t, len(got.SupplementFacts), MinFactsLen)
	assert.Equal(t, model.FactsTextPattern, got.Meta.FactsKind)
	assert.True(t, got.NumericDosesPresent)
	assert.Equal(t, []string{"title:generic:h1", "ingredients:text_pattern", "facts:text_pattern"}, got.Meta.ParserSteps)
}

func TestParse_MarketingCopyRejected(t *testing.T) {
	p := newParser(t)
	html := `<html><body><h1>Cocoa Blend</h1>
<p>Ingredients: our legacy recipe has a smooth, delicious taste that everyone loves every day.</p>
</body></html>`
	got, err := p.Parse(html, "https://x.example.com/p", "")
	require.NoError(t, err)
	assert.Empty(t, got.IngredientsRaw)
	assert.Equal(t, "none", got.Meta.IngredientsSource)
}

func TestParse_OCRLastResort(t *testing.T) {
	p := newParser(t)
	html := `<html><body><h1>Zinc 30</h1><p>Great product.</p></body></html>`
	ocr := "SUPPLEMENT FACTS\nServing Size 1 Tablet\nZinc (as zinc picolinate) 30 mg 273%\nOther Ingredients: Microcrystalline cellulose, stearic acid, silicon dioxide."

	got, err := p.Parse(html, "https://x.example.com/zinc", ocr)
	require.NoError(t, err)
	assert.Equal(t, "Microcrystalline cellulose, stearic acid, silicon dioxide.", got.IngredientsRaw)
	assert.Equal(t, model.FactsOCR, got.Meta.FactsKind)
	assert.Contains(t, got.SupplementFacts, "Zinc (as zinc picolinate) 30 mg")
	assert.Equal(t, "ocr", got.Meta.IngredientsSource)
	assert.Equal(t, []string{"title:generic:h1", "ingredients:ocr", "facts:ocr"}, got.Meta.ParserSteps)
}

func TestParse_OCRWithoutMarkerIgnored(t *testing.T) {
	p := newParser(t)
	html := `<html><body><h1>Zinc 30</h1></body></html>`

	got, err := p.Parse(html, "https://x.example.com/zinc", "FREE SHIPPING ON ORDERS OVER $50")
	require.NoError(t, err)
	assert.Empty(t, got.SupplementFacts)
	assert.Equal(t, model.FactsNone, got.Meta.FactsKind)
	assert.Equal(t, []string{"title:generic:h1"}, got.Meta.ParserSteps)
}

func TestParse_EmptyHTML(t *testing.T) {
	p := newParser(t)
	got, err := p.Parse("", "https://x.example.com/", "")
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.NotNil(t, got.Meta.ParserSteps)
	assert.Empty(t, got.Meta.ParserSteps)
}

func TestParse_TitleTagSuffixTrimmed(t *testing.T) {
	p := newParser(t)
	got, err := p.Parse(`<html><head><title>Ashwagandha 600 mg | Herb Shop</title></head><body></body></html>`, "https://herbs.example.com/a", "")
	require.NoError(t, err)
	assert.Equal(t, "Ashwagandha 600 mg", got.Title)
	assert.Equal(t, []string{"title:generic:title_tag"}, got.Meta.ParserSteps)
}

func TestParse_NFKCNormalization(t *testing.T) {
	p := newParser(t)
	// Fullwidth digits and the micro sign normalize to ASCII digits and mu.
	html := `<html><body><p>Ingredients: Vitamin B12 (as methylcobalamin) ５００ µg, organic rice flour, vegetable capsule.</p></body></html>`
	got, err := p.Parse(html, "https://x.example.com/b12", "")
	require.NoError(t, err)
	assert.Contains(t, got.IngredientsRaw, "500 μg")
	assert.True(t, got.NumericDosesPresent)
}
