package scrapfly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("fly-key", WithBaseURL(srv.URL))
}

func TestScrape_QueryParams(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/scrape", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "fly-key", q.Get("key"))
		assert.Equal(t, "https://shop.example.com/p/1", q.Get("url"))
		assert.Equal(t, "true", q.Get("asp"))
		assert.Equal(t, "true", q.Get("render_js"))
		assert.Equal(t, PoolDatacenter, q.Get("proxy_pool"))
		assert.Equal(t, "20000", q.Get("timeout"))

		json.NewEncoder(w).Encode(ScrapeResponse{Result: ScrapeResult{ //nolint:errcheck
			Content:    "<html>label</html>",
			StatusCode: 200,
			Success:    true,
		}})
	})

	resp, err := c.Scrape(context.Background(), ScrapeRequest{
		URL:       "https://shop.example.com/p/1",
		ASP:       true,
		RenderJS:  true,
		ProxyPool: PoolDatacenter,
		Timeout:   20000,
	})
	require.NoError(t, err)
	assert.Equal(t, "<html>label</html>", resp.Result.Content)
}

func TestScrape_HTTPError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid key"}`)) //nolint:errcheck
	})

	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://x.test"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.HTTPStatus())
}

func TestScrape_UpstreamStatusInEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ScrapeResponse{Result: ScrapeResult{ //nolint:errcheck
			Content:    "not found",
			StatusCode: 404,
		}})
	})

	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://x.test/missing"})
	require.Error(t, err)
	require.NotNil(t, resp)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}

func TestScrape_TransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient("fly-secret-key", WithBaseURL(base))
	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://x.test"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "fly-secret-key")
	assert.Contains(t, err.Error(), "key=REDACTED")

	var urlErr *url.Error
	require.ErrorAs(t, err, &urlErr)
}
