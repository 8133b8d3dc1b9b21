package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Rate is the sustained number of calls per second. Zero means 10.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"min=0"`

	// Burst is the bucket capacity, the number of calls that may pass
	// at once after an idle period. Zero means Rate rounded down, at
	// least 1.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"min=0"`
}

// Limiter paces calls with a token bucket: each call takes a token,
// tokens refill at Rate per second, and the bucket holds at most Burst.
type Limiter struct {
	rate  float64
	burst float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewLimiter creates a full Limiter.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if config.Burst < 1 {
			config.Burst = 1
		}
	}
	return &Limiter{
		rate:   config.Rate,
		burst:  float64(config.Burst),
		tokens: float64(config.Burst),
		last:   time.Now(),
	}
}

// Allow takes a token if one is available and reports whether it did.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait takes a token, blocking until one refills or ctx ends. A wait
// ended by ctx refunds its reservation, so abandoned waiters do not
// charge the callers after them.
func (l *Limiter) Wait(ctx context.Context) error {
	delay := l.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		l.refund()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tokens returns the number of tokens currently available. Negative
// values mean reserved calls are still paying off their debt.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// reserve takes a token, letting the balance go negative, and returns
// how long the caller must wait for the debt to refill.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// refund returns a reserved token, capped at the burst size.
func (l *Limiter) refund() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens++
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

// refill adds tokens for the time elapsed since the last refill, capped
// at the burst size. Callers must hold mu.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
