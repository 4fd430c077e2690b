package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// MaxPageChars caps pageMarkdown and pageText in the response.
const MaxPageChars = 20000

var (
	blockTags   = regexp.MustCompile(`(?i)<\s*/?\s*(?:p|div|br|li|tr|h[1-6]|section|article|table|ul|ol)\b[^>]*>`)
	spaceRun    = regexp.MustCompile(`[ \t\x{00a0}]+`)
	newlineRuns = regexp.MustCompile(`\n(?:\s*\n)+`)
)

// pageRenderer turns provider HTML into the markdown and plain-text
// candidates the client uses for facts selection.
type pageRenderer struct {
	md     *converter.Converter
	strict *bluemonday.Policy
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		strict: bluemonday.StrictPolicy(),
	}
}

// Markdown converts rawHTML to markdown. An empty string is returned when
// conversion fails.
func (r *pageRenderer) Markdown(rawHTML, pageURL string) string {
	if rawHTML == "" {
		return ""
	}
	out, err := r.md.ConvertString(rawHTML, converter.WithDomain(pageURL))
	if err != nil {
		return ""
	}
	return capChars(strings.TrimSpace(out), MaxPageChars)
}

// Text strips every tag from rawHTML, keeping line breaks at block
// boundaries.
func (r *pageRenderer) Text(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	s := blockTags.ReplaceAllString(rawHTML, "\n$0")
	s = html.UnescapeString(r.strict.Sanitize(s))
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = newlineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return capChars(strings.TrimSpace(s), MaxPageChars)
}

// capChars truncates s to at most n runes.
func capChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
