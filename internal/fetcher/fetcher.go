// Package fetcher is the bounded-timeout HTTP helper every provider call goes
// through: paced transports for vendor clients and a deadline wrapper that
// times each attempt.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimeout is returned by Timed when the per-call deadline elapsed.
var ErrTimeout = eris.New("fetcher: request timed out")

// Options configures an HTTP client for a vendor API.
type Options struct {
	UserAgent string
	// Timeout is the hard client timeout. Per-attempt deadlines come from
	// Timed; this is a backstop.
	Timeout time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// NewHTTPClient creates an *http.Client with pooled connections and an
// optional adaptive rate limit.
func NewHTTPClient(opts Options) *http.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "labelscore/1.0"
	}

	base := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}

	var limiter *AdaptiveLimiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = NewAdaptiveLimiter(opts.RequestsPerSecond, burst)
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &pacedTransport{
			base:      base,
			limiter:   limiter,
			userAgent: opts.UserAgent,
		},
	}
}

// pacedTransport waits on the adaptive limiter before each request and
// feeds 429 responses back into it.
type pacedTransport struct {
	base      http.RoundTripper
	limiter   *AdaptiveLimiter
	userAgent string
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || t.limiter == nil {
		return resp, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.limiter.OnRateLimit()
	} else if resp.StatusCode < 400 {
		t.limiter.OnSuccess()
	}
	return resp, nil
}

// Timed runs fn under a deadline of timeout and reports how long it took.
// A deadline hit is reported as ErrTimeout (wrapping the original error) so
// callers can record it as a failed attempt; cancellation of the parent
// context is passed through unchanged.
func Timed[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, time.Duration, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	val, err := fn(callCtx)
	elapsed := time.Since(start)

	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return val, elapsed, eris.Wrapf(ErrTimeout, "after %s: %v", timeout, err)
	}
	return val, elapsed, err
}

// IsTimeout reports whether err came from a Timed deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ReadBody reads at most limit bytes of body and closes it.
func ReadBody(body io.ReadCloser, limit int64) ([]byte, error) {
	defer body.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(body, limit))
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	return data, nil
}
