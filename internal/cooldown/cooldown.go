// ABOUTME: Call-rate limiter enforcing a minimum interval between successful calls
// ABOUTME: Rejected attempts do not consume the interval; callers can bypass via context

package cooldown

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited matches any *RateLimitedError via errors.Is.
var ErrRateLimited = errors.New("rate limited")

// RateLimitedError is returned when a call arrives before the cooldown interval
// has elapsed since the last successful call.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("cooldown: retry after %d seconds", e.RetryAfterSeconds())
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds the retry delay up to whole seconds.
func (e *RateLimitedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// Limiter allows at most one successful call per interval. A nil *Limiter
// never limits.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	bucket   *rate.Limiter
	now      func() time.Time
}

// New creates a Limiter with the given minimum interval between successful calls.
// Returns nil when interval is not positive, which disables limiting.
func New(interval time.Duration) *Limiter {
	return NewWithClock(interval, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(interval time.Duration, now func() time.Time) *Limiter {
	if interval <= 0 {
		return nil
	}
	return &Limiter{
		interval: interval,
		bucket:   rate.NewLimiter(rate.Every(interval), 1),
		now:      now,
	}
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Allow records a successful call, or returns a *RateLimitedError without
// recording anything if the interval has not yet elapsed.
func (l *Limiter) Allow(ctx context.Context) error {
	if l == nil || Bypassed(ctx) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// AllowN only mutates the bucket when it grants the token.
	if l.bucket.AllowN(now, 1) {
		return nil
	}
	return &RateLimitedError{RetryAfter: l.retryAfter(now)}
}

func (l *Limiter) retryAfter(now time.Time) time.Duration {
	missing := 1 - l.bucket.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(l.interval))
}

// Wrap decorates fn so every invocation first passes through the limiter.
// A rejected invocation never reaches fn.
func Wrap[Req, Resp any](l *Limiter, fn func(context.Context, Req) (Resp, error)) func(context.Context, Req) (Resp, error) {
	if l == nil {
		return fn
	}
	return func(ctx context.Context, req Req) (Resp, error) {
		if err := l.Allow(ctx); err != nil {
			var zero Resp
			return zero, err
		}
		return fn(ctx, req)
	}
}

type bypassKey struct{}

// WithoutCooldown marks ctx so limiters let the call through without
// recording it. Meant for internal maintenance calls.
func WithoutCooldown(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// Bypassed reports whether ctx was marked by WithoutCooldown.
func Bypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}
