package scrape

import (
	"regexp"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockCloudflare  BlockType = "cloudflare"
	BlockAkamai      BlockType = "akamai"
	BlockPerimeterX  BlockType = "perimeterx"
	BlockDataDome    BlockType = "datadome"
	BlockIncapsula   BlockType = "incapsula"
	BlockCaptcha     BlockType = "captcha"
	BlockGenericPage BlockType = "generic_error"
	BlockJSShell     BlockType = "js_shell"
)

// blockSignature is one row of the detection table. Signatures that also
// occur as incidental markup on real product pages carry a size cap, since
// challenge pages are small.
type blockSignature struct {
	kind     BlockType
	pattern  *regexp.Regexp
	maxBytes int // 0 = any size
}

// blockSignatures is a seed list and is expected to grow as new vendor
// challenge pages are observed.
var blockSignatures = []blockSignature{
	{BlockCloudflare, regexp.MustCompile(`(?i)cf-browser-verification|cf-chl-|checking your browser before accessing|attention required! \| cloudflare|<title>just a moment\.\.\.</title>`), 0},
	{BlockAkamai, regexp.MustCompile(`(?i)<title>access denied</title>|you don't have permission to access .{0,200} on this server|errors\.edgesuite\.net`), 0},
	{BlockPerimeterX, regexp.MustCompile(`(?i)px-captcha|press (?:&amp;|&) hold`), 0},
	{BlockDataDome, regexp.MustCompile(`(?i)captcha-delivery\.com`), 0},
	{BlockIncapsula, regexp.MustCompile(`(?i)incapsula incident id|_incapsula_resource`), 50_000},
	{BlockCaptcha, regexp.MustCompile(`(?i)g-recaptcha|h-captcha|hcaptcha|are you a robot|robot check|verify (?:that )?you are (?:a )?human`), 100_000},
	{BlockGenericPage, regexp.MustCompile(`(?i)a problem has occurred|something went wrong|request unsuccessful|unusual traffic from your computer|access to this page has been denied`), 100_000},
	{BlockJSShell, regexp.MustCompile(`(?i)<noscript[^>]*>[^<]*(?:enable|requires?) javascript`), 2_000},
}

// DetectBlock classifies returned HTML as a bot-block page. The first
// matching signature wins.
func DetectBlock(html string) BlockType {
	if html == "" {
		return BlockNone
	}
	for _, sig := range blockSignatures {
		if sig.maxBytes > 0 && len(html) > sig.maxBytes {
			continue
		}
		if sig.pattern.MatchString(html) {
			return sig.kind
		}
	}
	return BlockNone
}
