// Package scoring calls the LLM scorer with a flat-jitter retry policy and
// validates its reply into a ScorePayload.
package scoring

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/fetcher"
	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/resilience"
)

// Retry defaults for the scoring call.
const (
	DefaultMaxAttempts = 3
	DefaultMaxJitter   = 500 * time.Millisecond
	DefaultTimeout     = 30 * time.Second
)

// ErrInvalidRequest is returned when the request has no title.
var ErrInvalidRequest = eris.New("scoring: title is required")

// Completer sends one system+user exchange to an LLM and returns the reply
// text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
	Model() string
}

// QuotaError reports an exhausted LLM quota (HTTP 429). It is never retried.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("scoring: llm quota exceeded: %v", e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// Code returns the wire error code.
func (e *QuotaError) Code() string { return model.CodeQuotaExceeded }

// HTTPStatus maps quota exhaustion to 503 at the endpoint.
func (e *QuotaError) HTTPStatus() int { return http.StatusServiceUnavailable }

// Scorer runs the scoring call.
type Scorer struct {
	llm         Completer
	maxAttempts int
	delay       resilience.DelayFunc
	timeout     time.Duration
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithDelay overrides the between-attempt delay.
func WithDelay(d resilience.DelayFunc) Option {
	return func(s *Scorer) { s.delay = d }
}

// WithMaxAttempts overrides the total attempt budget.
func WithMaxAttempts(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScorer creates a Scorer over llm.
func NewScorer(llm Completer, opts ...Option) *Scorer {
	s := &Scorer{
		llm:         llm,
		maxAttempts: DefaultMaxAttempts,
		delay:       resilience.FlatJitter(DefaultMaxJitter),
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the model name of the underlying completer.
func (s *Scorer) Model() string { return s.llm.Model() }

// retryable is true for 5xx, timeouts and transport failures. 429 and other
// 4xx statuses are final.
func retryable(err error) bool {
	if code := resilience.StatusOf(err); code != 0 {
		return code >= 500
	}
	return fetcher.IsTimeout(err) || resilience.IsNetworkError(err)
}

// Score scores req. Every attempt is returned as a ChainStep, including on
// error. A 429 from the LLM yields a *QuotaError after exactly one attempt.
func (s *Scorer) Score(ctx context.Context, req model.ScoreRequest) (model.ScorePayload, []model.ChainStep, error) {
	if strings.TrimSpace(req.Title) == "" {
		return model.ScorePayload{}, nil, ErrInvalidRequest
	}

	user := UserPrompt(req)
	var steps []model.ChainStep
	cfg := resilience.RetryConfig{
		MaxAttempts: s.maxAttempts,
		ShouldRetry: retryable,
		Delay:       s.delay,
		OnRetry:     resilience.RetryLogger(s.llm.Name(), "score"),
	}

	payload, err := resilience.DoVal(ctx, cfg, func(ctx context.Context, attempt int) (model.ScorePayload, error) {
		reply, elapsed, err := fetcher.Timed(ctx, s.timeout, func(ctx context.Context) (string, error) {
			return s.llm.Complete(ctx, SystemPrompt, user)
		})
		step := model.NewStep(s.llm.Name(), attempt, model.StepOK, elapsed)
		if err != nil {
			step.Status = model.StepError
			step.HTTPCode = resilience.StatusOf(err)
			step.Hint = hintFor(err)
			steps = append(steps, step)
			return model.ScorePayload{}, err
		}

		p, err := ParsePayload(reply)
		if err != nil {
			step.Status = model.StepError
			step.Hint = "bad_json"
			steps = append(steps, step)
			return model.ScorePayload{}, err
		}
		steps = append(steps, step)
		return p, nil
	})
	if err != nil {
		if resilience.StatusOf(err) == http.StatusTooManyRequests {
			zap.L().Warn("scoring: llm quota exhausted", zap.String("model", s.llm.Model()))
			return model.ScorePayload{}, steps, &QuotaError{Err: err}
		}
		return model.ScorePayload{}, steps, eris.Wrap(err, "scoring: score")
	}

	zap.L().Debug("scoring: scored",
		zap.String("title", req.Title),
		zap.Int("score", payload.Score),
		zap.Int("attempts", len(steps)),
	)
	return payload, steps, nil
}

func hintFor(err error) string {
	switch code := resilience.StatusOf(err); {
	case code == http.StatusTooManyRequests:
		return "quota"
	case code != 0:
		return fmt.Sprintf("http_%d", code)
	case fetcher.IsTimeout(err):
		return "timeout"
	case resilience.IsNetworkError(err):
		return "network"
	default:
		return "error"
	}
}
