// Package ocrspace is a minimal client for the OCR.space image OCR API.
package ocrspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.ocr.space"

// Client defines the OCR.space operations.
type Client interface {
	ParseImage(ctx context.Context, req ParseRequest) (*ParseResponse, error)
}

// ParseRequest is the form body for POST /parse/image.
type ParseRequest struct {
	ImageURL string
	Language string
	// Engine selects the OCR engine (1 or 2). Engine 2 handles dense label
	// typography better.
	Engine int
	Scale  bool
}

// ParseResponse is the response from POST /parse/image.
type ParseResponse struct {
	ParsedResults         []ParsedResult  `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage,omitempty"`
}

// ParsedResult is the text of one image.
type ParsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
}

// Text joins the parsed text of every result.
func (r *ParseResponse) Text() string {
	parts := make([]string, 0, len(r.ParsedResults))
	for _, p := range r.ParsedResults {
		if t := strings.TrimSpace(p.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// APIError is returned when OCR.space responds with a non-2xx status or
// reports a processing error.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ocrspace: HTTP %d: %s", e.StatusCode, e.Body)
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

// NewClient creates a new OCR.space client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ParseImage(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	form := url.Values{}
	form.Set("url", req.ImageURL)
	lang := req.Language
	if lang == "" {
		lang = "eng"
	}
	form.Set("language", lang)
	if req.Engine > 0 {
		form.Set("OCREngine", fmt.Sprintf("%d", req.Engine))
	}
	if req.Scale {
		form.Set("scale", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse/image", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "ocrspace: create request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "ocrspace: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ocrspace: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out ParseResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "ocrspace: decode response")
	}
	if out.IsErroredOnProcessing {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(out.ErrorMessage)}
	}
	return &out, nil
}
