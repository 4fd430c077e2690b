package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxAttempts int) RetryConfig {
	return RetryConfig{MaxAttempts: maxAttempts, Delay: NoDelay}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context, _ int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var attempts []int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("unexpected attempt numbers %v", attempts)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context, _ int) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context, _ int) error {
		calls++
		return errors.New("permanent error: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
}

func TestDo_RetryOnStatus(t *testing.T) {
	cfg := fastConfig(2)
	cfg.ShouldRetry = RetryOnStatus(429, 400)

	var calls int
	err := Do(context.Background(), cfg, func(_ context.Context, attempt int) error {
		calls++
		if attempt == 1 {
			return &statusErr{code: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}

	calls = 0
	_ = Do(context.Background(), cfg, func(_ context.Context, _ int) error {
		calls++
		return &statusErr{code: 500}
	})
	if calls != 1 {
		t.Errorf("500 should not match RetryOnStatus(429, 400); got %d calls", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxAttempts: 5,
		Delay:       func(int) time.Duration { return time.Second },
	}

	var calls int
	err := Do(ctx, cfg, func(_ context.Context, _ int) error {
		calls++
		cancel()
		return NewTransientError(errors.New("fail"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error) {
		retried = append(retried, attempt)
	}

	_ = Do(context.Background(), cfg, func(_ context.Context, _ int) error {
		return NewTransientError(errors.New("fail"), 500)
	})
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", retried)
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context, attempt int) (string, error) {
		if attempt == 1 {
			return "", NewTransientError(errors.New("retry"), 502)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context, _ int) (int, error) {
		return 42, errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != 0 {
		t.Errorf("expected zero value, got %d", val)
	}
}

func TestExponential_GrowsAndCaps(t *testing.T) {
	d := Exponential(100*time.Millisecond, 300*time.Millisecond, 2.0, 0)
	if got := d(1); got != 100*time.Millisecond {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := d(2); got != 200*time.Millisecond {
		t.Errorf("attempt 2: got %v", got)
	}
	if got := d(3); got != 300*time.Millisecond {
		t.Errorf("attempt 3 should cap at 300ms, got %v", got)
	}
}

func TestFlatJitter_Bounds(t *testing.T) {
	d := FlatJitter(500 * time.Millisecond)
	for attempt := 1; attempt <= 100; attempt++ {
		got := d(attempt)
		if got < 0 || got > 500*time.Millisecond {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
	if got := FlatJitter(0)(1); got != 0 {
		t.Errorf("zero jitter should be 0, got %v", got)
	}
}

func TestRetryLogger(t *testing.T) {
	fn := RetryLogger("openrouter", "score")
	fn(1, errors.New("test error"))
}
