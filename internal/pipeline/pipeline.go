// Package pipeline is the client-side orchestrator: cache lookup, rate
// limiting, extraction, facts selection, scoring and score normalization
// for one URL.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/fetcher"
	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/resilience"
)

// Step provider names recorded in ChainResult.meta.chain.
const (
	StepExtract = "extract"
	StepScore   = "score"
)

// Defaults for Options.
const (
	DefaultCacheTTL       = 24 * time.Hour
	DefaultExtractTimeout = 30 * time.Second
	DefaultScoreTimeout   = 45 * time.Second
)

// ErrRateLimited is returned when the token bucket is empty. It is the only
// failure Run surfaces as an error.
var ErrRateLimited = eris.New("pipeline: rate limited, try again in a minute")

// Extractor calls the extraction boundary.
type Extractor interface {
	Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error)
}

// ScoreClient calls the scoring boundary.
type ScoreClient interface {
	Score(ctx context.Context, req model.ScoreRequest) (*model.ScoreResponse, error)
}

// Options tunes a Pipeline.
type Options struct {
	CachePrefix    string
	CacheTTL       time.Duration
	ExtractTimeout time.Duration
	ScoreTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.CachePrefix == "" {
		o.CachePrefix = DefaultCachePrefix
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.ExtractTimeout <= 0 {
		o.ExtractTimeout = DefaultExtractTimeout
	}
	if o.ScoreTimeout <= 0 {
		o.ScoreTimeout = DefaultScoreTimeout
	}
	return o
}

// Pipeline runs extract+score round trips. The cache and bucket are shared
// across concurrent Run calls.
type Pipeline struct {
	extractor Extractor
	scorer    ScoreClient
	cache     Cache
	bucket    *TokenBucket
	opts      Options
	nowFunc   func() time.Time
	newID     func() string
}

// New creates a Pipeline. A nil cache disables caching; a nil bucket uses
// the default five-per-minute limit.
func New(ext Extractor, sc ScoreClient, cache Cache, bucket *TokenBucket, opts Options) *Pipeline {
	if bucket == nil {
		bucket = NewTokenBucket(DefaultBucketCapacity, DefaultBucketWindow)
	}
	return &Pipeline{
		extractor: ext,
		scorer:    sc,
		cache:     cache,
		bucket:    bucket,
		opts:      opts.withDefaults(),
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// Run extracts and scores rawURL. Ordinary failures are reported inside
// the result (meta.error, meta.score.error); only ErrRateLimited and
// cancellation of ctx are returned as errors.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*model.ChainResult, error) {
	log := zap.L().With(zap.String("url", rawURL))
	key := CacheKey(p.opts.CachePrefix, rawURL)

	if cached := p.lookup(ctx, key, log); cached != nil {
		return cached, nil
	}

	if !p.bucket.TryConsume() {
		log.Warn("pipeline: rate limited", zap.Duration("retry_after", p.bucket.RetryAfter()))
		return nil, ErrRateLimited
	}

	result := &model.ChainResult{
		Product: model.Product{
			ID:          p.newID(),
			Title:       model.UnknownTitle,
			Ingredients: []string{},
			Warnings:    []string{},
		},
		Score: model.Score{Highlights: []string{}, Concerns: []string{}},
		Meta: model.ChainMeta{
			Chain:       []model.ChainStep{},
			FactsSource: FactsFromNone,
			TS:          p.nowFunc().UTC(),
		},
	}

	// Extract.
	ext, elapsed, err := fetcher.Timed(ctx, p.opts.ExtractTimeout, func(ctx context.Context) (*model.ExtractResponse, error) {
		return p.extractor.Extract(ctx, model.ExtractRequest{URL: rawURL})
	})
	result.Meta.Chain = append(result.Meta.Chain, boundaryStep(StepExtract, elapsed, err))
	if ext != nil && ext.Meta.Status != "" {
		rem := ext.Remediation()
		result.Meta.Remediation = &rem
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pipeline: cancelled during extract")
		}
		log.Warn("pipeline: extract failed", zap.Error(err))
		result.Meta.Error = err.Error()
		return result, nil
	}

	if ext.Title != "" {
		result.Product.Title = ext.Title
	}
	result.Product.Ingredients = SplitIngredients(ext.IngredientsRaw)
	if len(ext.Warnings) > 0 {
		result.Product.Warnings = ext.Warnings
	}

	facts := SelectFacts(FactsInput{
		SupplementFacts: ext.SupplementFacts,
		Markdown:        ext.PageMarkdown,
		PageText:        ext.PageText,
		Ingredients:     result.Product.Ingredients,
	})
	result.Product.Facts = facts.Text
	result.Meta.FactsSource = facts.Source
	result.Meta.FactsTokens = facts.Tokens

	// Score.
	sr, elapsed, err := fetcher.Timed(ctx, p.opts.ScoreTimeout, func(ctx context.Context) (*model.ScoreResponse, error) {
		return p.scorer.Score(ctx, model.ScoreRequest{
			Title:       result.Product.Title,
			Ingredients: result.Product.Ingredients,
			Facts:       facts.Text,
			Warnings:    result.Product.Warnings,
		})
	})
	result.Meta.Chain = append(result.Meta.Chain, boundaryStep(StepScore, elapsed, err))

	var payload model.ScorePayload
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pipeline: cancelled during score")
		}
		log.Warn("pipeline: score failed", zap.Error(err))
		result.Meta.Score = &model.ScoreError{Code: scoreErrorCode(err), Error: err.Error()}
	} else {
		payload = sr.ScorePayload
	}

	payload.Concerns = AdjustConcerns(payload.Concerns, len(result.Product.Ingredients) > 0, ext.NumericDosesPresent)
	result.Score = Normalize(payload)

	p.store(ctx, key, result, log)
	return result, nil
}

// lookup returns a deep copy of a fresh cache entry, evicting stale ones.
func (p *Pipeline) lookup(ctx context.Context, key string, log *zap.Logger) *model.ChainResult {
	if p.cache == nil {
		return nil
	}
	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn("pipeline: cache read failed", zap.Error(err))
		return nil
	}
	if entry == nil {
		return nil
	}
	if entry.Expired(p.nowFunc(), p.opts.CacheTTL) {
		if err := p.cache.Delete(ctx, key); err != nil {
			log.Warn("pipeline: cache evict failed", zap.Error(err))
		}
		return nil
	}
	out := entry.Data.Clone()
	out.Meta.Cached = true
	log.Debug("pipeline: cache hit")
	return out
}

// store writes non-trivial results. Failures are logged, never returned.
func (p *Pipeline) store(ctx context.Context, key string, result *model.ChainResult, log *zap.Logger) {
	if p.cache == nil || result.Trivial() || ctx.Err() != nil {
		return
	}
	entry := &model.CachedEntry{Data: *result.Clone(), Timestamp: p.nowFunc().UnixMilli()}
	if err := p.cache.Put(ctx, key, entry); err != nil {
		log.Warn("pipeline: cache write failed", zap.Error(err))
	}
}

func boundaryStep(name string, elapsed time.Duration, err error) model.ChainStep {
	step := model.NewStep(name, 1, model.StepOK, elapsed)
	if err != nil {
		step.Status = model.StepError
		step.HTTPCode = resilience.StatusOf(err)
		if fetcher.IsTimeout(err) {
			step.Hint = "timeout"
		}
	}
	return step
}

// coder is implemented by errors carrying a wire error code.
type coder interface {
	Code() string
}

func scoreErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}
