package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeExtractor) ExtractText(_ context.Context, imageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, imageURL)
	if err := f.errs[imageURL]; err != nil {
		return "", err
	}
	return f.texts[imageURL], nil
}

const galleryPage = `<html><body>
<img src="/img/front.jpg" alt="Front">
<img src="//cdn.example.com/p/1.jpg">
<img src="data:image/png;base64,AAAA">
<img data-src="https://cdn.example.com/p/supplement-facts.jpg" src="placeholder.gif" alt="Supplement facts panel">
<img src="/img/5.jpg">
<img src="/img/back-label.jpg">
<img src="/img/front.jpg">
</body></html>`

const (
	factsImg = "https://cdn.example.com/p/supplement-facts.jpg"
	backImg  = "https://shop.example.com/img/back-label.jpg"
	midImg   = "https://shop.example.com/img/5.jpg"
	frontImg = "https://shop.example.com/img/front.jpg"
	cdnImg   = "https://cdn.example.com/p/1.jpg"
)

func urls(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.URL
	}
	return out
}

func TestRankImages(t *testing.T) {
	got := RankImages(galleryPage, "https://shop.example.com/products/zinc", 0)
	assert.Equal(t, []string{factsImg, backImg, midImg, frontImg, cdnImg}, urls(got))
	assert.Equal(t, 5, got[0].Score)
	assert.Equal(t, 3, got[1].Score)
	assert.Equal(t, 1, got[2].Score)
}

func TestRankImages_Cap(t *testing.T) {
	var sb strings.Builder
	for i := range 12 {
		fmt.Fprintf(&sb, `<img src="/img/%d.jpg">`, i)
	}
	assert.Len(t, RankImages(sb.String(), "https://shop.example.com/", 0), DefaultMaxImages)
	assert.Len(t, RankImages(sb.String(), "https://shop.example.com/", 3), 3)
}

func TestRankImages_NoImages(t *testing.T) {
	assert.Empty(t, RankImages("<p>no images</p>", "https://shop.example.com/", 0))
}

func TestFallback_ShortCircuits(t *testing.T) {
	ext := &fakeExtractor{
		errs: map[string]error{factsImg: fmt.Errorf("boom")},
		texts: map[string]string{
			backImg: "Great taste, made in the USA",
			midImg:  "SUPPLEMENT FACTS\nServing Size 1 Tablet\nZinc 30 mg",
		},
	}

	text, err := NewFallback(ext).Run(context.Background(), galleryPage, "https://shop.example.com/products/zinc")
	require.NoError(t, err)
	assert.Equal(t, "SUPPLEMENT FACTS\nServing Size 1 Tablet\nZinc 30 mg", text)
	assert.Equal(t, []string{factsImg, backImg, midImg}, ext.calls)
}

func TestFallback_Exhausted(t *testing.T) {
	ext := &fakeExtractor{}
	text, err := NewFallback(ext, WithMaxImages(2)).Run(context.Background(), galleryPage, "https://shop.example.com/products/zinc")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Len(t, ext.calls, 2)
}

func TestFallback_NilExtractor(t *testing.T) {
	text, err := NewFallback(nil).Run(context.Background(), galleryPage, "https://shop.example.com/")
	require.NoError(t, err)
	assert.Empty(t, text)

	var f *Fallback
	text, err = f.Run(context.Background(), galleryPage, "https://shop.example.com/")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := &fakeExtractor{}
	_, err := NewFallback(ext).Run(ctx, galleryPage, "https://shop.example.com/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ext.calls)
}
