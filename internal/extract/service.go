// Package extract implements the extraction endpoint: provider chain, block
// detection, parsing with OCR escalation, and remediation.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/ocr"
	"github.com/sells-group/labelscore/internal/parser"
	"github.com/sells-group/labelscore/internal/remediation"
	"github.com/sells-group/labelscore/internal/scrape"
)

// ProviderOCR is the ChainStep provider name of the image OCR escalation.
const ProviderOCR = "ocr"

// Error is an extraction failure that maps to an HTTP status. The response
// accompanying it, if any, still carries _meta.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("extract: %s", e.Msg) }

// HTTPStatus returns the HTTP status for the failure.
func (e *Error) HTTPStatus() int { return e.Code }

// Service runs extraction requests.
type Service struct {
	chain     *scrape.Chain
	parser    *parser.Parser
	ocr       *ocr.Fallback
	blocklist *remediation.Blocklist
	render    *pageRenderer
}

// Option configures a Service.
type Option func(*Service)

// WithOCR enables the image OCR escalation.
func WithOCR(f *ocr.Fallback) Option {
	return func(s *Service) { s.ocr = f }
}

// WithBlocklist overrides the default domain blocklist.
func WithBlocklist(b *remediation.Blocklist) Option {
	return func(s *Service) { s.blocklist = b }
}

// NewService creates a Service over chain and p.
func NewService(chain *scrape.Chain, p *parser.Parser, opts ...Option) *Service {
	s := &Service{
		chain:     chain,
		parser:    p,
		blocklist: remediation.NewBlocklist(nil),
		render:    newPageRenderer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract resolves req.URL into a product. On 451 and 502 outcomes both the
// response and an *Error are returned.
func (s *Service) Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error) {
	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		return nil, &Error{Code: http.StatusBadRequest, Msg: "url is required"}
	}
	if u, err := url.Parse(pageURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Code: http.StatusBadRequest, Msg: fmt.Sprintf("invalid url %q", pageURL)}
	}
	log := zap.L().With(zap.String("url", pageURL))

	if pattern := s.blocklist.Match(pageURL); pattern != "" {
		rem := remediation.Classify(remediation.Input{BlockedDomain: pattern})
		resp := &model.ExtractResponse{Meta: metaFor(rem)}
		resp.Meta.BlockedReason = fmt.Sprintf("domain %s blocks automated access", pattern)
		log.Info("extract: blocked domain", zap.String("pattern", pattern))
		return resp, &Error{Code: http.StatusUnavailableForLegalReasons, Msg: resp.Meta.BlockedReason}
	}

	out, err := s.chain.Run(ctx, scrape.Request{URL: pageURL, Proxy: req.Proxy, ForceScrapfly: req.ForceScrapfly})
	if err != nil {
		return nil, eris.Wrap(err, "extract: provider chain")
	}

	if !out.OK() {
		rem := remediation.Classify(remediation.Input{StatusCodes: out.StatusCodes()})
		resp := &model.ExtractResponse{Meta: metaFor(rem)}
		fillChainMeta(&resp.Meta, out)
		return resp, &Error{Code: http.StatusBadGateway, Msg: "no provider returned html"}
	}

	parsed, err := s.parser.Parse(out.HTML, pageURL, "")
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse")
	}

	if needsOCR(parsed) && s.ocr != nil {
		parsed, err = s.escalateOCR(ctx, out, pageURL, parsed)
		if err != nil {
			return nil, err
		}
	}

	rem := remediation.Classify(remediation.Input{
		HTMLReturned: true,
		StatusCodes:  out.StatusCodes(),
		Parsed:       &parsed,
	})

	pageMarkdown := capChars(strings.TrimSpace(out.Markdown), MaxPageChars)
	if pageMarkdown == "" {
		pageMarkdown = s.render.Markdown(out.HTML, pageURL)
	}

	resp := &model.ExtractResponse{
		Title:               parsed.Title,
		IngredientsRaw:      parsed.IngredientsRaw,
		SupplementFacts:     parsed.SupplementFacts,
		Warnings:            parsed.Warnings,
		NumericDosesPresent: parsed.NumericDosesPresent,
		Markdown:            legacyMarkdown(parsed),
		PageMarkdown:        pageMarkdown,
		PageText:            s.render.Text(out.HTML),
		Meta:                metaFor(rem),
	}
	fillChainMeta(&resp.Meta, out)
	resp.Meta.ParserSteps = parsed.Meta.ParserSteps
	resp.Meta.FactsKind = parsed.Meta.FactsKind
	resp.Meta.IngredientsSource = parsed.Meta.IngredientsSource

	log.Info("extract: done",
		zap.String("source", out.Source),
		zap.String("status", string(rem.Status)),
		zap.Strings("parser_steps", parsed.Meta.ParserSteps),
	)
	return resp, nil
}

// escalateOCR probes the page's images and re-parses with any label text
// found. The OCR attempt is recorded as a ChainStep.
func (s *Service) escalateOCR(ctx context.Context, out *scrape.Outcome, pageURL string, parsed model.ParsedProduct) (model.ParsedProduct, error) {
	start := time.Now()
	text, err := s.ocr.Run(ctx, out.HTML, pageURL)
	if err != nil {
		return parsed, eris.Wrap(err, "extract: ocr")
	}

	step := model.NewStep(ProviderOCR, 1, model.StepOK, time.Since(start))
	if text == "" {
		step.Status = model.StepEmpty
		step.Hint = "no_label_image"
		out.Steps = append(out.Steps, step)
		return parsed, nil
	}
	out.Steps = append(out.Steps, step)

	reparsed, err := s.parser.Parse(out.HTML, pageURL, text)
	if err != nil {
		return parsed, eris.Wrap(err, "extract: parse with ocr")
	}
	return reparsed, nil
}

func needsOCR(p model.ParsedProduct) bool {
	return p.IngredientsRaw == "" || p.SupplementFacts == ""
}

// legacyMarkdown carries facts, or ingredients when no facts were found.
func legacyMarkdown(p model.ParsedProduct) string {
	if p.SupplementFacts != "" {
		return p.SupplementFacts
	}
	return p.IngredientsRaw
}

func metaFor(rem model.RemediationResult) model.ExtractMeta {
	return model.ExtractMeta{
		Tried:            []string{},
		ParserSteps:      []string{},
		FactsKind:        model.FactsNone,
		Status:           rem.Status,
		Remediation:      rem.Remediation,
		RemediationNotes: rem.Notes,
	}
}

func fillChainMeta(meta *model.ExtractMeta, out *scrape.Outcome) {
	meta.Source = out.Source
	if tried := model.Tried(out.Steps); tried != nil {
		meta.Tried = tried
	}
	meta.Chain = out.Steps
	meta.FirecrawlStatus = out.VendorStatus[scrape.VendorFirecrawl]
	meta.ScrapflyStatus = out.VendorStatus[scrape.VendorScrapfly]
	meta.ScraperAPIStatus = out.VendorStatus[scrape.VendorScraperAPI]
}
