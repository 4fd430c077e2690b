// Package resilience provides the retry helper shared by the provider chain
// and the scoring call, plus transient-error classification.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
)

// DelayFunc returns how long to wait after the given failed attempt (1-based).
type DelayFunc func(attempt int) time.Duration

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// Delay computes the pause before the next attempt. If nil,
	// Exponential(500ms, 30s, 2.0, 0.25) is used.
	Delay DelayFunc

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// Exponential returns a DelayFunc growing by multiplier per attempt, capped
// at maxDelay, with ±jitterFraction random jitter.
func Exponential(initial, maxDelay time.Duration, multiplier, jitterFraction float64) DelayFunc {
	return func(attempt int) time.Duration {
		delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if delay > float64(maxDelay) {
			delay = float64(maxDelay)
		}
		if jitterFraction > 0 {
			jitterRange := delay * jitterFraction
			delay += (rand.Float64()*2 - 1) * jitterRange
		}
		if delay < 0 {
			delay = 0
		}
		return time.Duration(delay)
	}
}

// FlatJitter returns a DelayFunc drawing uniformly from [0, maxJitter]
// regardless of attempt number.
func FlatJitter(maxJitter time.Duration) DelayFunc {
	return func(int) time.Duration {
		if maxJitter <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(maxJitter) + 1))
	}
}

// NoDelay retries immediately.
func NoDelay(int) time.Duration { return 0 }

// RetryOnStatus returns a predicate matching errors whose HTTP status (see
// StatusOf) is one of codes.
func RetryOnStatus(codes ...int) func(error) bool {
	return func(err error) bool {
		return slices.Contains(codes, StatusOf(err))
	}
}

// Do executes fn with retry logic according to cfg. fn receives the 1-based
// attempt number. Context cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// DoVal is like Do but preserves the return value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		if delay := cfg.Delay(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}
	if cfg.Delay == nil {
		cfg.Delay = Exponential(500*time.Millisecond, 30*time.Second, 2.0, 0.25)
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("status", StatusOf(err)),
			zap.Error(err),
		)
	}
}
