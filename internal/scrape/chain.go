// Package scrape resolves a product URL to raw HTML by walking an ordered
// chain of scraping providers, recording one telemetry step per attempt.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/fetcher"
	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/resilience"
)

// DefaultMinHTMLBytes is the shortest trimmed HTML treated as usable.
const DefaultMinHTMLBytes = 500

// Step pairs a provider with its per-attempt timeout and retry budget.
type Step struct {
	Provider Provider
	Timeout  time.Duration
	Retry    resilience.RetryConfig
}

// Request is one extraction request entering the chain.
type Request struct {
	URL   string
	Proxy string
	// ForceScrapfly moves the stealth scraper to the head of the chain.
	ForceScrapfly bool
}

// Outcome is the chain result. HTML is empty when no provider produced
// usable, unblocked content.
type Outcome struct {
	HTML     string
	Markdown string
	// Source names the provider that produced HTML.
	Source string
	Steps  []model.ChainStep
	// VendorStatus holds the last HTTP code observed per vendor family.
	VendorStatus map[string]int
	// Blocked holds the block type detected per vendor family.
	Blocked map[string]BlockType
}

// OK reports whether the chain produced HTML.
func (o *Outcome) OK() bool { return o.HTML != "" }

// StatusCodes returns every HTTP code observed, in attempt order.
func (o *Outcome) StatusCodes() []int { return model.StatusCodes(o.Steps) }

// Chain tries providers in priority order, returning the first unblocked
// HTML. Providers run strictly sequentially.
type Chain struct {
	steps   []Step
	minHTML int
}

// NewChain creates a Chain. Steps are tried in order.
func NewChain(minHTMLBytes int, steps ...Step) *Chain {
	if minHTMLBytes <= 0 {
		minHTMLBytes = DefaultMinHTMLBytes
	}
	return &Chain{steps: steps, minHTML: minHTMLBytes}
}

// Len returns the number of configured steps.
func (c *Chain) Len() int { return len(c.steps) }

// Run walks the chain for req. It only returns an error when ctx is done;
// provider failures are recorded in the outcome's steps.
func (c *Chain) Run(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{
		VendorStatus: make(map[string]int),
		Blocked:      make(map[string]BlockType),
	}

	for _, step := range c.order(req) {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "scrape: chain cancelled")
		}

		vendor := step.Provider.Vendor()
		if bt, blocked := out.Blocked[vendor]; blocked {
			zap.L().Debug("scrape: skipping provider, vendor blocked",
				zap.String("provider", step.Provider.Name()),
				zap.String("block", string(bt)),
			)
			continue
		}

		page := c.attempt(ctx, step, req, out)
		if page != nil {
			out.HTML = page.HTML
			out.Markdown = page.Markdown
			out.Source = step.Provider.Name()
			return out, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return out, eris.Wrap(err, "scrape: chain cancelled")
	}
	zap.L().Info("scrape: no provider returned html",
		zap.String("url", req.URL),
		zap.Strings("tried", model.Tried(out.Steps)),
	)
	return out, nil
}

// attempt runs one provider under its retry budget and returns a usable
// page or nil.
func (c *Chain) attempt(ctx context.Context, step Step, req Request, out *Outcome) *Page {
	p := step.Provider

	page, err := resilience.DoVal(ctx, step.Retry, func(ctx context.Context, attempt int) (*Page, error) {
		page, elapsed, err := fetcher.Timed(ctx, step.Timeout, func(ctx context.Context) (*Page, error) {
			return p.Fetch(ctx, FetchRequest{URL: req.URL, Proxy: req.Proxy, Attempt: attempt})
		})

		cs := model.NewStep(p.Name(), attempt, model.StepOK, elapsed)
		switch {
		case err != nil:
			cs.Status = model.StepError
			cs.HTTPCode = resilience.StatusOf(err)
			cs.Hint = hintFor(err)
			page = nil
		case page == nil || len(strings.TrimSpace(page.HTML)) < c.minHTML:
			cs.Status = model.StepEmpty
			cs.Hint = "short_html"
			if page != nil {
				cs.HTTPCode = page.StatusCode
			}
			page = nil
		default:
			cs.HTTPCode = page.StatusCode
			if bt := DetectBlock(page.HTML); bt != BlockNone {
				cs.Status = model.StepError
				cs.Hint = "blocked:" + string(bt)
				out.Blocked[p.Vendor()] = bt
				page = nil
			}
		}
		if cs.HTTPCode != 0 {
			out.VendorStatus[p.Vendor()] = cs.HTTPCode
		}
		out.Steps = append(out.Steps, cs)

		zap.L().Debug("scrape: provider attempt",
			zap.String("provider", p.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", elapsed),
			zap.String("status", string(cs.Status)),
			zap.Int("http_code", cs.HTTPCode),
			zap.String("hint", cs.Hint),
		)
		return page, err
	})
	if err != nil {
		zap.L().Debug("scrape: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return nil
	}
	return page
}

// order returns the steps for req, with the scrapfly family first when
// forced.
func (c *Chain) order(req Request) []Step {
	if !req.ForceScrapfly {
		return c.steps
	}
	ordered := make([]Step, 0, len(c.steps))
	for _, s := range c.steps {
		if s.Provider.Vendor() == VendorScrapfly {
			ordered = append(ordered, s)
		}
	}
	for _, s := range c.steps {
		if s.Provider.Vendor() != VendorScrapfly {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func hintFor(err error) string {
	if fetcher.IsTimeout(err) {
		return "timeout"
	}
	if code := resilience.StatusOf(err); code != 0 {
		return fmt.Sprintf("http_%d", code)
	}
	if resilience.IsNetworkError(err) {
		return "network"
	}
	return "error"
}
