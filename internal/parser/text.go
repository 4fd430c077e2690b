package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\r\v\x{00a0}\x{2000}-\x{200b}\x{202f}\x{205f}\x{3000}]+`)
	blankLines      = regexp.MustCompile(`\n\s*\n+`)
)

// gapText NFKC-normalizes s, collapses horizontal whitespace and trims
// each line, keeping at most one blank line between paragraphs.
func gapText(s string) string {
	s = norm.NFKC.String(strings.ToValidUTF8(s, ""))
	s = horizontalSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := true
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, l)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// cleanText is gapText without blank lines.
func cleanText(s string) string {
	return blankLines.ReplaceAllString(gapText(s), "\n")
}

// oneLine collapses all whitespace, including line breaks.
func oneLine(s string) string {
	return strings.Join(strings.Fields(cleanText(s)), " ")
}

// skipped elements never contribute visible text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "iframe": true, "head": true,
}

// blocks are elements that break lines.
var blocks = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "br": true,
	"tr": true, "table": true, "section": true, "article": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "dt": true,
	"dd": true, "header": true, "footer": true, "details": true, "summary": true,
}

// visibleText renders the text a shopper would see, with block elements on
// their own lines and paragraph gaps preserved as blank lines before
// cleaning.
func visibleText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		walkText(n, &sb)
	}
	return sb.String()
}

func walkText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if skipped[n.Data] {
			return
		}
		if n.Data == "td" || n.Data == "th" {
			sb.WriteString(" ")
		}
	}

	block := n.Type == html.ElementNode && blocks[n.Data]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb)
	}
	if block {
		sb.WriteString("\n")
	}
	// Paragraph-level ends leave a gap so section terminators see them.
	if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "table" || n.Data == "section") {
		sb.WriteString("\n")
	}
}

// pageText returns the visible text of sel with paragraph gaps kept, for
// marker mining.
func pageText(sel *goquery.Selection) string {
	return gapText(visibleText(sel))
}

// selectionText returns the cleaned visible text of sel.
func selectionText(sel *goquery.Selection) string {
	return cleanText(visibleText(sel))
}
