package scrape

import (
	"net/http"
	"time"

	"github.com/sells-group/labelscore/internal/resilience"
	"github.com/sells-group/labelscore/pkg/firecrawl"
	"github.com/sells-group/labelscore/pkg/scraperapi"
	"github.com/sells-group/labelscore/pkg/scrapfly"
)

// Providers holds the configured vendor clients. A nil client means the key
// is absent and its adapters are left out of the chain.
type Providers struct {
	Firecrawl  firecrawl.Client
	Scrapfly   scrapfly.Client
	ScraperAPI scraperapi.Client
}

// Timeouts are the per-attempt deadlines of each adapter.
type Timeouts struct {
	FirecrawlScrape time.Duration
	FirecrawlCrawl  time.Duration
	Scrapfly        time.Duration
	ScraperAPI      time.Duration
}

// DefaultTimeouts returns the per-adapter deadlines; slower, pricier
// backends get more time.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		FirecrawlScrape: 20 * time.Second,
		FirecrawlCrawl:  30 * time.Second,
		Scrapfly:        25 * time.Second,
		ScraperAPI:      30 * time.Second,
	}
}

// FirecrawlRetry is the primary extractor policy: on 429 or 400, one more
// attempt (which switches to the stealth proxy).
func FirecrawlRetry(delay resilience.DelayFunc) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 2,
		ShouldRetry: resilience.RetryOnStatus(http.StatusTooManyRequests, http.StatusBadRequest),
		Delay:       delay,
		OnRetry:     resilience.RetryLogger("firecrawl", "scrape"),
	}
}

// singleAttempt runs the provider once; billed proxies are not retried.
func singleAttempt() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, Delay: resilience.NoDelay}
}

// DefaultSteps builds the attempt order: primary extractor, crawler mode,
// stealth datacenter scraper, premium proxy scraper.
func DefaultSteps(p Providers, t Timeouts) []Step {
	var steps []Step
	if p.Firecrawl != nil {
		steps = append(steps,
			Step{
				Provider: NewFirecrawlScrape(p.Firecrawl),
				Timeout:  t.FirecrawlScrape,
				Retry:    FirecrawlRetry(resilience.FlatJitter(500 * time.Millisecond)),
			},
			Step{
				Provider: NewFirecrawlCrawl(p.Firecrawl),
				Timeout:  t.FirecrawlCrawl,
				Retry:    FirecrawlRetry(resilience.FlatJitter(500 * time.Millisecond)),
			},
		)
	}
	if p.Scrapfly != nil {
		steps = append(steps, Step{
			Provider: NewScrapfly(p.Scrapfly),
			Timeout:  t.Scrapfly,
			Retry:    singleAttempt(),
		})
	}
	if p.ScraperAPI != nil {
		steps = append(steps, Step{
			Provider: NewScraperAPI(p.ScraperAPI),
			Timeout:  t.ScraperAPI,
			Retry:    singleAttempt(),
		})
	}
	return steps
}
