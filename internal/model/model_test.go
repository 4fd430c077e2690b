package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasNumericDoses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		texts []string
		want  bool
	}{
		{"milligrams", []string{"Vitamin C 500mg"}, true},
		{"micrograms with space", []string{"Biotin 30 mcg"}, true},
		{"international units", []string{"Vitamin D3 1000 IU"}, true},
		{"percent daily value", []string{"Zinc 100%"}, true},
		{"second text matches", []string{"Vitamin C, Zinc", "Magnesium 200 mg"}, true},
		{"no doses", []string{"Vitamin C, Zinc, Elderberry"}, false},
		{"gummy word is not grams", []string{"gummy base"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasNumericDoses(tt.texts...))
		})
	}
}

func TestStatusCodesAndTried(t *testing.T) {
	t.Parallel()

	steps := []ChainStep{
		{Provider: "firecrawl", Attempt: 1, HTTPCode: 429},
		{Provider: "firecrawl", Attempt: 2, HTTPCode: 403},
		{Provider: "scrapfly", Attempt: 1},
		{Provider: "scraperapi", Attempt: 1, HTTPCode: 404},
	}

	assert.Equal(t, []int{429, 403, 404}, StatusCodes(steps))
	assert.Equal(t, []string{"firecrawl", "scrapfly", "scraperapi"}, Tried(steps))
}

func TestChainResult_Clone(t *testing.T) {
	t.Parallel()

	orig := &ChainResult{
		Product: Product{ID: "p1", Title: "Vitamin C", Ingredients: []string{"Ascorbic acid"}},
		Score:   Score{Score: 80, Concerns: []string{"a"}},
		Meta: ChainMeta{
			Chain: []ChainStep{{Provider: "extract"}},
			Score: &ScoreError{Error: "boom"},
		},
	}

	cp := orig.Clone()
	require.NotNil(t, cp)
	assert.Equal(t, orig, cp)

	cp.Product.Ingredients[0] = "changed"
	cp.Score.Concerns[0] = "changed"
	cp.Meta.Chain[0].Provider = "changed"
	cp.Meta.Score.Error = "changed"

	assert.Equal(t, "Ascorbic acid", orig.Product.Ingredients[0])
	assert.Equal(t, "a", orig.Score.Concerns[0])
	assert.Equal(t, "extract", orig.Meta.Chain[0].Provider)
	assert.Equal(t, "boom", orig.Meta.Score.Error)

	var nilResult *ChainResult
	assert.Nil(t, nilResult.Clone())
}

func TestChainResult_Trivial(t *testing.T) {
	t.Parallel()

	assert.True(t, (&ChainResult{Product: Product{Title: UnknownTitle}}).Trivial())
	assert.True(t, (&ChainResult{}).Trivial())
	assert.False(t, (&ChainResult{Product: Product{Title: "Fish Oil"}}).Trivial())
	assert.False(t, (&ChainResult{Product: Product{Title: UnknownTitle, Ingredients: []string{"EPA"}}}).Trivial())
}

func TestCachedEntry_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	e := CachedEntry{Timestamp: now.Add(-23 * time.Hour).UnixMilli()}
	assert.False(t, e.Expired(now, 24*time.Hour))

	e.Timestamp = now.Add(-24 * time.Hour).UnixMilli()
	assert.True(t, e.Expired(now, 24*time.Hour))
}
