// Package scraperapi is a minimal client for ScraperAPI, the premium-proxy
// backend that renders JavaScript through residential IPs.
package scraperapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// redacted replaces the API key in logged URLs.
const redacted = "REDACTED"

const defaultBaseURL = "https://api.scraperapi.com"

// Client defines the ScraperAPI operations.
type Client interface {
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
}

// ScrapeRequest holds the query parameters of GET /.
type ScrapeRequest struct {
	URL         string
	Render      bool
	Premium     bool
	CountryCode string
}

// ScrapeResponse is the raw page returned by ScraperAPI.
type ScrapeResponse struct {
	StatusCode int
	HTML       string
}

// APIError is returned when ScraperAPI responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scraperapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the upstream status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new ScraperAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 70 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// maxBody caps the page size read from the proxy.
const maxBody = 8 << 20

func (c *httpClient) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("url", req.URL)
	if req.Render {
		q.Set("render", "true")
	}
	if req.Premium {
		q.Set("premium", "true")
	}
	if req.CountryCode != "" {
		q.Set("country_code", req.CountryCode)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(redactKey(err, c.apiKey), "scraperapi: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(redactKey(err, c.apiKey), "scraperapi: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "scraperapi: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return &ScrapeResponse{StatusCode: resp.StatusCode, HTML: string(data)}, nil
}

// redactKey removes the API key from the request URL carried by a
// *url.Error so transport failures can be logged.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	u := strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), redacted)
	u = strings.ReplaceAll(u, key, redacted)
	return &url.Error{Op: urlErr.Op, URL: u, Err: urlErr.Err}
}
