package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/config"
	"github.com/sells-group/labelscore/internal/extract"
	"github.com/sells-group/labelscore/internal/fetcher"
	"github.com/sells-group/labelscore/internal/ocr"
	"github.com/sells-group/labelscore/internal/parser"
	"github.com/sells-group/labelscore/internal/pipeline"
	"github.com/sells-group/labelscore/internal/remediation"
	"github.com/sells-group/labelscore/internal/scoring"
	"github.com/sells-group/labelscore/internal/scrape"
	"github.com/sells-group/labelscore/internal/store"
	"github.com/sells-group/labelscore/pkg/firecrawl"
	"github.com/sells-group/labelscore/pkg/functions"
	"github.com/sells-group/labelscore/pkg/scraperapi"
	"github.com/sells-group/labelscore/pkg/scrapfly"
)

// vendorHTTPClient returns a paced client; each vendor gets its own limiter.
func vendorHTTPClient(c *config.Config) *http.Client {
	return fetcher.NewHTTPClient(fetcher.Options{RequestsPerSecond: c.Chain.RequestsPerSecond, Burst: 2})
}

// buildProviders creates a client for every keyed scraping vendor.
func buildProviders(c *config.Config) scrape.Providers {
	var p scrape.Providers
	if c.Firecrawl.Key != "" {
		opts := []firecrawl.Option{firecrawl.WithHTTPClient(vendorHTTPClient(c))}
		if c.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		}
		p.Firecrawl = firecrawl.NewClient(c.Firecrawl.Key, opts...)
	}
	if c.Scrapfly.Key != "" {
		opts := []scrapfly.Option{scrapfly.WithHTTPClient(vendorHTTPClient(c))}
		if c.Scrapfly.BaseURL != "" {
			opts = append(opts, scrapfly.WithBaseURL(c.Scrapfly.BaseURL))
		}
		p.Scrapfly = scrapfly.NewClient(c.Scrapfly.Key, opts...)
	}
	if c.ScraperAPI.Key != "" {
		opts := []scraperapi.Option{scraperapi.WithHTTPClient(vendorHTTPClient(c))}
		if c.ScraperAPI.BaseURL != "" {
			opts = append(opts, scraperapi.WithBaseURL(c.ScraperAPI.BaseURL))
		}
		p.ScraperAPI = scraperapi.NewClient(c.ScraperAPI.Key, opts...)
	}
	return p
}

// chainTimeouts overlays the configured per-adapter deadlines on the
// defaults.
func chainTimeouts(cc config.ChainConfig) scrape.Timeouts {
	t := scrape.DefaultTimeouts()
	if cc.FirecrawlScrapeTimeoutSecs > 0 {
		t.FirecrawlScrape = config.Secs(cc.FirecrawlScrapeTimeoutSecs)
	}
	if cc.FirecrawlCrawlTimeoutSecs > 0 {
		t.FirecrawlCrawl = config.Secs(cc.FirecrawlCrawlTimeoutSecs)
	}
	if cc.ScrapflyTimeoutSecs > 0 {
		t.Scrapfly = config.Secs(cc.ScrapflyTimeoutSecs)
	}
	if cc.ScraperAPITimeoutSecs > 0 {
		t.ScraperAPI = config.Secs(cc.ScraperAPITimeoutSecs)
	}
	return t
}

// buildExtractService wires the provider chain, parser, OCR fallback and
// blocklist.
func buildExtractService(c *config.Config) (*extract.Service, error) {
	chain := scrape.NewChain(c.Chain.MinHTMLBytes, scrape.DefaultSteps(buildProviders(c), chainTimeouts(c.Chain))...)
	if chain.Len() == 0 {
		return nil, eris.New("wire: no scraping provider configured")
	}

	var sites []parser.SiteRule
	if c.Extract.SitesFile != "" {
		var err error
		if sites, err = parser.LoadSites(c.Extract.SitesFile); err != nil {
			return nil, eris.Wrap(err, "wire: load site selectors")
		}
	}
	prs, err := parser.New(sites)
	if err != nil {
		return nil, eris.Wrap(err, "wire: parser")
	}

	blocklist := remediation.NewBlocklist(c.Extract.BlockedDomains)
	opts := []extract.Option{extract.WithBlocklist(blocklist)}
	if c.Extract.OCREnabled {
		ocrExt, err := ocr.NewExtractor(c.OCR)
		if err != nil {
			return nil, eris.Wrap(err, "wire: ocr")
		}
		if ocrExt != nil {
			opts = append(opts, extract.WithOCR(ocr.NewFallback(ocrExt,
				ocr.WithMaxImages(c.OCR.MaxImages),
				ocr.WithTimeout(config.Secs(c.OCR.TimeoutSecs)),
			)))
		}
	}
	zap.L().Info("extract service ready",
		zap.Int("chain_steps", chain.Len()),
		zap.Strings("blocked_domains", blocklist.Patterns()),
	)
	return extract.NewService(chain, prs, opts...), nil
}

// buildScorer returns nil, nil when the selected LLM backend has no key.
func buildScorer(c *config.Config) (*scoring.Scorer, error) {
	llm, err := scoring.NewCompleter(c)
	if errors.Is(err, scoring.ErrMissingKey) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scoring.NewScorer(llm,
		scoring.WithMaxAttempts(c.LLM.MaxAttempts),
		scoring.WithTimeout(config.Secs(c.LLM.TimeoutSecs)),
	), nil
}

// clientEnv is a client pipeline and the cache backend it owns.
type clientEnv struct {
	Pipeline *pipeline.Pipeline
	Cache    store.Backend
}

// Close releases the cache backend.
func (e *clientEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// buildClient wires the client pipeline against the hosted functions
// (remote) or in-process services. Callers should defer env.Close().
func buildClient(ctx context.Context, c *config.Config, remote bool) (*clientEnv, error) {
	mode := "local"
	if remote {
		mode = "remote"
	}
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	var (
		ext pipeline.Extractor
		sc  pipeline.ScoreClient
	)
	if remote {
		var opts []functions.Option
		if c.Functions.AccessToken != "" {
			opts = append(opts, functions.WithAccessToken(c.Functions.AccessToken))
		}
		fn := functions.NewClient(c.Functions.BaseURL, c.Functions.AnonKey, opts...)
		ext = pipeline.NewRemoteExtractor(fn)
		sc = pipeline.NewRemoteScorer(fn)
	} else {
		svc, err := buildExtractService(c)
		if err != nil {
			return nil, err
		}
		scorer, err := buildScorer(c)
		if err != nil {
			return nil, err
		}
		if scorer == nil {
			return nil, scoring.ErrMissingKey
		}
		ext = pipeline.NewLocalExtractor(svc)
		sc = pipeline.NewLocalScorer(scorer)
	}

	cache, err := store.Open(ctx, c.Client.Cache.Driver, c.Client.Cache.DSN, &store.PoolConfig{
		MaxConns: c.Client.Cache.MaxConns,
		MinConns: c.Client.Cache.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "wire: open cache")
	}

	bucket := pipeline.NewTokenBucket(c.Client.RateLimit, config.Secs(c.Client.RateWindowSecs))
	p := pipeline.New(ext, sc, cache, bucket, pipeline.Options{
		CachePrefix:    c.Client.Cache.Prefix,
		CacheTTL:       time.Duration(c.Client.Cache.TTLHours) * time.Hour,
		ExtractTimeout: config.Secs(c.Client.ExtractTimeoutSecs),
		ScoreTimeout:   config.Secs(c.Client.ScoreTimeoutSecs),
	})
	return &clientEnv{Pipeline: p, Cache: cache}, nil
}
