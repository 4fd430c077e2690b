// Package functions invokes hosted edge functions over the BaaS
// functions-invoke transport.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client invokes named functions.
type Client interface {
	Invoke(ctx context.Context, name string, body any, out any) error
}

// APIError is returned when a function responds with a non-2xx status. Body
// is kept verbatim so callers can decode structured error payloads.
type APIError struct {
	Function   string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("functions: %s: HTTP %d: %s", e.Function, e.StatusCode, string(e.Body))
}

// HTTPStatus returns the upstream status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAccessToken sends a user session token instead of the anon key in the
// Authorization header.
func WithAccessToken(token string) Option {
	return func(c *httpClient) {
		c.bearer = token
	}
}

type httpClient struct {
	baseURL string
	anonKey string
	bearer  string
	http    *http.Client
}

// NewClient creates a functions client for the project at baseURL.
func NewClient(baseURL, anonKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		bearer:  anonKey,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Invoke(ctx context.Context, name string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrapf(err, "functions: marshal %s request", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/functions/v1/"+name, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrapf(err, "functions: create %s request", name)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("x-client-info", "labelscore-go/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "functions: invoke %s", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "functions: read %s response", name)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Function: name, StatusCode: resp.StatusCode, Body: data}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "functions: decode %s response", name)
	}
	return nil
}
