package pipeline

import (
	"sync"
	"time"
)

// Default client rate limit: five extract+score runs per minute.
const (
	DefaultBucketCapacity = 5
	DefaultBucketWindow   = 60 * time.Second
)

// TokenBucket is a fixed-window limiter: it refills to capacity once per
// window. It is safe for concurrent use and keeps 0 <= tokens <= capacity.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	window     time.Duration
	tokens     int
	lastRefill time.Time
	nowFunc    func() time.Time
}

// NewTokenBucket creates a full bucket. Non-positive arguments use the
// defaults.
func NewTokenBucket(capacity int, window time.Duration) *TokenBucket {
	if capacity <= 0 {
		capacity = DefaultBucketCapacity
	}
	if window <= 0 {
		window = DefaultBucketWindow
	}
	b := &TokenBucket{capacity: capacity, window: window, nowFunc: time.Now}
	b.tokens = capacity
	b.lastRefill = b.nowFunc()
	return b
}

func (b *TokenBucket) refill(now time.Time) {
	if now.Sub(b.lastRefill) >= b.window {
		b.tokens = b.capacity
		b.lastRefill = now
	}
}

// TryConsume takes one token, reporting false when none remain.
func (b *TokenBucket) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.nowFunc())
	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns the tokens currently available.
func (b *TokenBucket) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.nowFunc())
	return b.tokens
}

// RetryAfter returns how long until the next refill.
func (b *TokenBucket) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowFunc()
	b.refill(now)
	if b.tokens > 0 {
		return 0
	}
	return b.lastRefill.Add(b.window).Sub(now)
}
