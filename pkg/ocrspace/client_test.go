package ocrspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/parse/image", r.URL.Path)
		assert.Equal(t, "ocr-key", r.Header.Get("apikey"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/facts.jpg", r.PostForm.Get("url"))
		assert.Equal(t, "eng", r.PostForm.Get("language"))
		assert.Equal(t, "2", r.PostForm.Get("OCREngine"))
		assert.Equal(t, "true", r.PostForm.Get("scale"))

		w.Write([]byte(`{"ParsedResults":[{"ParsedText":"Supplement Facts\r\nVitamin D3 25mcg"},{"ParsedText":"  "}],"OCRExitCode":1,"IsErroredOnProcessing":false}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("ocr-key", WithBaseURL(srv.URL))
	resp, err := c.ParseImage(context.Background(), ParseRequest{
		ImageURL: "https://cdn.example.com/facts.jpg",
		Engine:   2,
		Scale:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Supplement Facts\r\nVitamin D3 25mcg", resp.Text())
}

func TestParseImage_ProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"OCRExitCode":3,"IsErroredOnProcessing":true,"ErrorMessage":["Unable to download image"]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("ocr-key", WithBaseURL(srv.URL))
	_, err := c.ParseImage(context.Background(), ParseRequest{ImageURL: "https://x.test/a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to download image")
}

func TestParseImage_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.ParseImage(context.Background(), ParseRequest{ImageURL: "https://x.test/a.png"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}
