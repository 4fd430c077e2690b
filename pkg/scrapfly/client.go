// Package scrapfly is a minimal client for the Scrapfly scrape API, used as
// the stealth datacenter-proxy backend.
package scrapfly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// redacted replaces the API key in logged URLs.
const redacted = "REDACTED"

const defaultBaseURL = "https://api.scrapfly.io"

// Proxy pools.
const (
	PoolDatacenter  = "public_datacenter_pool"
	PoolResidential = "public_residential_pool"
)

// Client defines the Scrapfly operations.
type Client interface {
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
}

// ScrapeRequest holds the query parameters of GET /scrape.
type ScrapeRequest struct {
	URL       string
	ASP       bool // anti-scraping protection bypass
	RenderJS  bool
	ProxyPool string
	Country   string
	// Timeout in milliseconds, enforced upstream.
	Timeout int
}

// ScrapeResponse is the response from GET /scrape.
type ScrapeResponse struct {
	Result ScrapeResult `json:"result"`
}

// ScrapeResult is the scraped page.
type ScrapeResult struct {
	Content    string `json:"content"`
	StatusCode int    `json:"status_code"`
	URL        string `json:"url"`
	Success    bool   `json:"success"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// APIError is returned when Scrapfly responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scrapfly: HTTP %d: %s", e.StatusCode, e.Body)
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

// NewClient creates a new Scrapfly client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("url", req.URL)
	if req.ASP {
		q.Set("asp", "true")
	}
	if req.RenderJS {
		q.Set("render_js", "true")
	}
	if req.ProxyPool != "" {
		q.Set("proxy_pool", req.ProxyPool)
	}
	if req.Country != "" {
		q.Set("country", req.Country)
	}
	if req.Timeout > 0 {
		q.Set("timeout", strconv.Itoa(req.Timeout))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scrape?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(redactKey(err, c.apiKey), "scrapfly: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(redactKey(err, c.apiKey), "scrapfly: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "scrapfly: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out ScrapeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "scrapfly: decode response")
	}

	// Scrapfly reports upstream failures inside a 200 envelope.
	if out.Result.StatusCode >= 400 {
		return &out, &APIError{StatusCode: out.Result.StatusCode, Body: truncate(out.Result.Content, 512)}
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
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
