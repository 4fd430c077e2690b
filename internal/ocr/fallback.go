package ocr

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/fetcher"
	"github.com/sells-group/labelscore/internal/parser"
)

// Defaults for the image probe.
const (
	DefaultMaxImages = 8
	DefaultTimeout   = 20 * time.Second
)

// Carousel positions that usually hold the back-of-bottle shots.
const (
	panelIndexMin = 4
	panelIndexMax = 19
)

var labelKeywords = regexp.MustCompile(`(?i)supplement|nutrition|facts|ingredients|panel|label|back`)

// srcAttrs are read in order; lazy-loading galleries keep the real URL in a
// data attribute.
var srcAttrs = []string{"data-old-hires", "data-zoom-image", "data-large_image", "data-src", "src"}

// Candidate is one ranked image.
type Candidate struct {
	URL   string
	Index int
	Score int
}

// RankImages returns the absolute image URLs of html ordered by how likely
// they are to show a label, capped at limit (DefaultMaxImages when limit <= 0).
func RankImages(html, pageURL string, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultMaxImages
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var out []Candidate
	seen := make(map[string]bool)
	doc.Find("img").Each(func(i int, img *goquery.Selection) {
		u := resolve(base, imageSrc(img))
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, Candidate{URL: u, Index: i, Score: scoreImage(u, img, i)})
	})

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func imageSrc(img *goquery.Selection) string {
	for _, attr := range srcAttrs {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// scoreImage counts keyword hits in the file name and alt text, plus one for
// a mid-gallery position.
func scoreImage(u string, img *goquery.Selection, index int) int {
	name := u
	if parsed, err := url.Parse(u); err == nil {
		name = path.Base(parsed.Path)
	}
	score := len(labelKeywords.FindAllString(name, -1))
	score += len(labelKeywords.FindAllString(img.AttrOr("alt", "")+" "+img.AttrOr("title", ""), -1))
	if index >= panelIndexMin && index <= panelIndexMax {
		score++
	}
	return score
}

// resolve makes src absolute against base. Inline data URIs are dropped.
func resolve(base *url.URL, src string) string {
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// Fallback probes ranked images one at a time until OCR yields label text.
type Fallback struct {
	ext       Extractor
	maxImages int
	timeout   time.Duration
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithMaxImages caps how many images are sent to OCR.
func WithMaxImages(n int) FallbackOption {
	return func(f *Fallback) {
		if n > 0 {
			f.maxImages = n
		}
	}
}

// WithTimeout sets the per-image OCR deadline.
func WithTimeout(d time.Duration) FallbackOption {
	return func(f *Fallback) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFallback creates a Fallback over ext.
func NewFallback(ext Extractor, opts ...FallbackOption) *Fallback {
	f := &Fallback{ext: ext, maxImages: DefaultMaxImages, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run returns the first OCR text carrying an ingredients or supplement facts
// marker. An empty string means every candidate was exhausted. Per-image
// failures are logged and skipped; only cancellation of ctx is an error.
func (f *Fallback) Run(ctx context.Context, html, pageURL string) (string, error) {
	if f == nil || f.ext == nil {
		return "", nil
	}
	log := zap.L().With(zap.String("url", pageURL))

	for _, c := range RankImages(html, pageURL, f.maxImages) {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "ocr: fallback cancelled")
		}

		text, elapsed, err := fetcher.Timed(ctx, f.timeout, func(ctx context.Context) (string, error) {
			return f.ext.ExtractText(ctx, c.URL)
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", eris.Wrap(ctx.Err(), "ocr: fallback cancelled")
			}
			log.Debug("ocr: image failed", zap.String("image", c.URL), zap.Duration("elapsed", elapsed), zap.Error(err))
			continue
		}
		if parser.HasLabelMarker(text) {
			log.Info("ocr: label found",
				zap.String("image", c.URL),
				zap.Int("index", c.Index),
				zap.Int("score", c.Score),
				zap.Duration("elapsed", elapsed),
			)
			return text, nil
		}
		log.Debug("ocr: no label marker", zap.String("image", c.URL), zap.Duration("elapsed", elapsed))
	}
	return "", nil
}
