// Package server mounts the extraction and scoring endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/model"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Extractor resolves a product URL.
type Extractor interface {
	Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error)
}

// Scorer scores a product.
type Scorer interface {
	Score(ctx context.Context, req model.ScoreRequest) (*model.ScoreResponse, error)
}

// Options configures the router.
type Options struct {
	// RequestsPerMinute limits each client IP. Zero disables the limit.
	RequestsPerMinute int
}

// Server holds the endpoint dependencies. A nil scorer means no LLM key is
// configured; the scoring endpoint then answers 400.
type Server struct {
	extractor Extractor
	scorer    Scorer
}

// New returns the HTTP handler for both endpoints.
func New(ext Extractor, sc Scorer, opts Options) http.Handler {
	s := &Server{extractor: ext, scorer: sc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"authorization", "x-client-info", "apikey", "content-type"},
		OptionsPassthrough: true,
		MaxAge:             300,
	}))
	r.Use(middleware.RequestSize(maxBodyBytes))
	if opts.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, path := range []string{"/functions/v1/extract", "/extract"} {
		r.Post(path, s.handleExtract)
		r.Options(path, preflight)
	}
	for _, path := range []string{"/functions/v1/score", "/score"} {
		r.Post(path, s.handleScore)
		r.Options(path, preflight)
	}
	return r
}

// preflight answers OPTIONS after the CORS middleware has set its headers.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
