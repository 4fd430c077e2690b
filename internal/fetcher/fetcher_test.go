package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewHTTPClient_SetsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{UserAgent: "test-agent", Timeout: 5 * time.Second})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	body, err := ReadBody(resp.Body, 1024)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient(Options{})
	assert.Equal(t, 60*time.Second, c.Timeout)
	pt, ok := c.Transport.(*pacedTransport)
	require.True(t, ok)
	assert.Nil(t, pt.limiter)
	assert.Equal(t, "labelscore/1.0", pt.userAgent)
}

func TestPacedTransport_RateLimits(t *testing.T) {
	var reqTimes []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTimes = append(reqTimes, time.Now())
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{RequestsPerSecond: 2, Burst: 1, Timeout: 5 * time.Second})
	for range 3 {
		resp, err := c.Get(srv.URL)
		require.NoError(t, err)
		_, _ = ReadBody(resp.Body, 16)
	}

	require.Len(t, reqTimes, 3)
	assert.GreaterOrEqual(t, reqTimes[2].Sub(reqTimes[0]).Milliseconds(), int64(500))
}

func TestPacedTransport_429ReducesRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{RequestsPerSecond: 100, Burst: 10})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	pt := c.Transport.(*pacedTransport)
	assert.Equal(t, rate.Limit(50), pt.limiter.Limit())
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(10, 10)
	for range 20 {
		a.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), a.Limit())

	for range 20 {
		a.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), a.Limit())
}

func TestAdaptiveLimiter_Wait_ContextCancelled(t *testing.T) {
	a := NewAdaptiveLimiter(0.001, 1)
	require.NoError(t, a.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, a.Wait(ctx))
}

func TestTimed_Success(t *testing.T) {
	val, elapsed, err := Timed(context.Background(), time.Second, func(_ context.Context) (string, error) {
		return "html", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "html", val)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
}

func TestTimed_DeadlineIsTimeout(t *testing.T) {
	var calls atomic.Int32
	_, _, err := Timed(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestTimed_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Timed(ctx, time.Second, func(ctx context.Context) (string, error) {
		return "", ctx.Err()
	})
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTimed_HTTPServerTooSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{})
	_, _, err := Timed(context.Background(), 50*time.Millisecond, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.Do(req)
		if err != nil {
			return nil, err
		}
		return ReadBody(resp.Body, 1024)
	})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestReadBody_Limit(t *testing.T) {
	body := io.NopCloser(strings.NewReader("0123456789"))
	data, err := ReadBody(body, 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))
}
