package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/pkg/firecrawl"
	"github.com/sells-group/labelscore/pkg/scraperapi"
	"github.com/sells-group/labelscore/pkg/scrapfly"
)

var pageFormats = []string{"rawHtml", "markdown"}

// FirecrawlScrape is the primary extractor: Firecrawl's single-page scrape.
// Retried attempts switch to the stealth proxy.
type FirecrawlScrape struct {
	client firecrawl.Client
}

// NewFirecrawlScrape creates the primary extractor adapter.
func NewFirecrawlScrape(client firecrawl.Client) *FirecrawlScrape {
	return &FirecrawlScrape{client: client}
}

// Name implements Provider.
func (f *FirecrawlScrape) Name() string { return "firecrawl" }

// Vendor implements Provider.
func (f *FirecrawlScrape) Vendor() string { return VendorFirecrawl }

// Fetch implements Provider.
func (f *FirecrawlScrape) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     req.URL,
		Formats: pageFormats,
		Proxy:   proxyFor(req),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	return pageFromFirecrawl(f.Name(), resp.Data)
}

// FirecrawlCrawl is the secondary crawler-mode call: a one-page crawl job
// polled to completion.
type FirecrawlCrawl struct {
	client       firecrawl.Client
	pollInterval time.Duration
}

// NewFirecrawlCrawl creates the crawler-mode adapter.
func NewFirecrawlCrawl(client firecrawl.Client) *FirecrawlCrawl {
	return &FirecrawlCrawl{client: client, pollInterval: time.Second}
}

// Name implements Provider.
func (f *FirecrawlCrawl) Name() string { return "firecrawl_crawl" }

// Vendor implements Provider.
func (f *FirecrawlCrawl) Vendor() string { return VendorFirecrawl }

// Fetch implements Provider.
func (f *FirecrawlCrawl) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	job, err := f.client.Crawl(ctx, firecrawl.CrawlRequest{
		URL:   req.URL,
		Limit: 1,
		ScrapeOptions: &firecrawl.ScrapeOptions{
			Formats: pageFormats,
			Proxy:   proxyFor(req),
		},
	})
	if err != nil {
		return nil, err
	}

	status, err := firecrawl.PollCrawl(ctx, f.client, job.ID,
		firecrawl.WithPollInterval(f.pollInterval),
	)
	if err != nil {
		return nil, err
	}
	if len(status.Data) == 0 {
		return &Page{StatusCode: 200}, nil
	}
	return pageFromFirecrawl(f.Name(), status.Data[0])
}

func proxyFor(req FetchRequest) string {
	if req.Attempt > 1 {
		return firecrawl.ProxyStealth
	}
	return req.Proxy
}

func pageFromFirecrawl(name string, d firecrawl.PageData) (*Page, error) {
	code, err := targetStatus(name, d.Metadata.StatusCode)
	if err != nil {
		return nil, err
	}
	return &Page{HTML: d.Content(), Markdown: d.Markdown, StatusCode: code}, nil
}

// Scrapfly is the stealth datacenter-proxy backend.
type Scrapfly struct {
	client scrapfly.Client
}

// NewScrapfly creates the Scrapfly adapter.
func NewScrapfly(client scrapfly.Client) *Scrapfly {
	return &Scrapfly{client: client}
}

// Name implements Provider.
func (s *Scrapfly) Name() string { return "scrapfly" }

// Vendor implements Provider.
func (s *Scrapfly) Vendor() string { return VendorScrapfly }

// Fetch implements Provider.
func (s *Scrapfly) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	resp, err := s.client.Scrape(ctx, scrapfly.ScrapeRequest{
		URL:       req.URL,
		ASP:       true,
		RenderJS:  true,
		ProxyPool: scrapfly.PoolDatacenter,
	})
	if err != nil {
		return nil, err
	}
	code, err := targetStatus(s.Name(), resp.Result.StatusCode)
	if err != nil {
		return nil, err
	}
	return &Page{HTML: resp.Result.Content, StatusCode: code}, nil
}

// ScraperAPI is the premium-proxy backend: JS rendering pinned to US exits.
type ScraperAPI struct {
	client  scraperapi.Client
	country string
}

// NewScraperAPI creates the ScraperAPI adapter.
func NewScraperAPI(client scraperapi.Client) *ScraperAPI {
	return &ScraperAPI{client: client, country: "us"}
}

// Name implements Provider.
func (s *ScraperAPI) Name() string { return "scraperapi" }

// Vendor implements Provider.
func (s *ScraperAPI) Vendor() string { return VendorScraperAPI }

// Fetch implements Provider.
func (s *ScraperAPI) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	resp, err := s.client.Scrape(ctx, scraperapi.ScrapeRequest{
		URL:         req.URL,
		Render:      true,
		Premium:     true,
		CountryCode: s.country,
	})
	if err != nil {
		return nil, err
	}
	return &Page{HTML: resp.HTML, StatusCode: resp.StatusCode}, nil
}
