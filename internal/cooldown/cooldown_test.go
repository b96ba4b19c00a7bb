// ABOUTME: Tests for the cooldown limiter covering acceptance, rejection, and bypass
// ABOUTME: Uses a controllable clock so interval boundaries are deterministic

package cooldown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_FirstCallAllowed(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)

	assert.NoError(t, l.Allow(context.Background()))
}

func TestLimiter_RejectsWithinInterval(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx))

	clock.Advance(3 * time.Second)
	err := l.Allow(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.InDelta(t, (7 * time.Second).Seconds(), rl.RetryAfter.Seconds(), 0.01)
	assert.Equal(t, 7, rl.RetryAfterSeconds())
}

func TestLimiter_AllowsAfterInterval(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx))
	clock.Advance(11 * time.Second)
	assert.NoError(t, l.Allow(ctx))
}

func TestLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx))

	// Hammer the limiter during the window; none of these should count.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		require.ErrorIs(t, l.Allow(ctx), ErrRateLimited)
	}

	// 10.5s after the only success, the next call must pass.
	clock.Advance(5500 * time.Millisecond)
	assert.NoError(t, l.Allow(ctx))
}

func TestLimiter_Bypass(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx))
	assert.NoError(t, l.Allow(WithoutCooldown(ctx)))
	assert.NoError(t, l.Allow(WithoutCooldown(ctx)))

	// Bypassed calls are not recorded either.
	clock.Advance(11 * time.Second)
	require.NoError(t, l.Allow(ctx))

	clock.Advance(time.Second)
	assert.ErrorIs(t, l.Allow(ctx), ErrRateLimited)
}

func TestLimiter_BypassBeforeFirstCallLeavesBudget(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10*time.Second, clock.Now)
	ctx := context.Background()

	require.NoError(t, l.Allow(WithoutCooldown(ctx)))
	assert.NoError(t, l.Allow(ctx))
}

func TestLimiter_NilAndZeroIntervalNeverLimit(t *testing.T) {
	var l *Limiter
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Allow(ctx))
	}
	assert.Zero(t, l.Interval())

	assert.Nil(t, New(0))
	assert.Nil(t, New(-time.Second))
}

func TestWrap(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(time.Minute, clock.Now)
	ctx := context.Background()

	calls := 0
	echo := Wrap(l, func(_ context.Context, s string) (string, error) {
		calls++
		return "echo: " + s, nil
	})

	got, err := echo(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", got)

	got, err = echo(ctx, "again")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, got)
	assert.Equal(t, 1, calls, "rejected call must not reach the wrapped function")

	got, err = echo(WithoutCooldown(ctx), "maintenance")
	require.NoError(t, err)
	assert.Equal(t, "echo: maintenance", got)
	assert.Equal(t, 2, calls)
}

func TestWrap_NilLimiterPassesThrough(t *testing.T) {
	fn := func(_ context.Context, n int) (int, error) { return n * 2, nil }
	wrapped := Wrap[int, int](nil, fn)

	for i := 0; i < 3; i++ {
		got, err := wrapped(context.Background(), i)
		require.NoError(t, err)
		assert.Equal(t, i*2, got)
	}
}

func TestRateLimitedError_Message(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 2500 * time.Millisecond}
	assert.Equal(t, 3, err.RetryAfterSeconds())
	assert.Contains(t, err.Error(), "retry after 3 seconds")
}

func TestLimiter_ConcurrentCallsAdmitOne(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(time.Hour, clock.Now)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx) == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, allowed)
}
