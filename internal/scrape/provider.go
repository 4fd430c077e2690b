package scrape

import (
	"context"
	"fmt"
)

// Vendor families. Adapters of the same family share a blocked flag.
const (
	VendorFirecrawl  = "firecrawl"
	VendorScrapfly   = "scrapfly"
	VendorScraperAPI = "scraperapi"
)

// FetchRequest is what a provider receives for a single attempt.
type FetchRequest struct {
	URL string
	// Proxy is the caller-requested proxy mode for the first attempt.
	Proxy string
	// Attempt is 1-based within the provider's retry budget.
	Attempt int
}

// Page is raw content returned by a provider.
type Page struct {
	HTML       string
	Markdown   string
	StatusCode int
}

// Provider fetches raw page content from one scraping backend.
type Provider interface {
	// Name identifies the adapter in chain telemetry.
	Name() string
	// Vendor is the billing/access family the adapter belongs to.
	Vendor() string
	Fetch(ctx context.Context, req FetchRequest) (*Page, error)
}

// TargetStatusError reports a non-2xx status of the target page itself, as
// relayed by a provider that otherwise succeeded.
type TargetStatusError struct {
	Provider   string
	StatusCode int
}

func (e *TargetStatusError) Error() string {
	return fmt.Sprintf("scrape: %s: target returned HTTP %d", e.Provider, e.StatusCode)
}

// HTTPStatus returns the target status code.
func (e *TargetStatusError) HTTPStatus() int { return e.StatusCode }

// targetStatus normalizes a relayed status into a page or a status error.
func targetStatus(provider string, code int) (int, error) {
	if code == 0 {
		return 200, nil
	}
	if code >= 400 {
		return code, &TargetStatusError{Provider: provider, StatusCode: code}
	}
	return code, nil
}
