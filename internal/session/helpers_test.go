// ABOUTME: Shared fakes for session tests: a settable clock and a scripted agent factory
// ABOUTME: The factory hands out numbered agents so renewals are observable by identity

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/chatbot-gateway/internal/agent"
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

type fakeAgent struct {
	serial  int
	closed  atomic.Bool
	askErr  error
	release chan struct{} // when non-nil, Ask blocks until closed
	started chan struct{} // when non-nil, signalled as Ask begins
}

func (a *fakeAgent) Ask(ctx context.Context, prompt string) (string, error) {
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if a.askErr != nil {
		return "", a.askErr
	}
	return fmt.Sprintf("agent-%d: %s", a.serial, prompt), nil
}

func (a *fakeAgent) Close() error {
	a.closed.Store(true)
	return nil
}

type greetingAgent struct {
	*fakeAgent
	greeting string
}

func (a *greetingAgent) InitialResponse() string { return a.greeting }

type fakeFactory struct {
	mu        sync.Mutex
	serial    int
	agents    []*fakeAgent
	fail      error
	failModel string // fail only configs with this model
	panics    bool
	askErr    error
	greet     bool
	release   chan struct{}
	started   chan struct{}
	configs   []agent.Config
}

func (f *fakeFactory) CreateAgent(_ context.Context, cfg agent.Config) (agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.configs = append(f.configs, cfg)
	if f.panics {
		panic("factory exploded")
	}
	if f.fail != nil {
		return nil, f.fail
	}
	if f.failModel != "" && cfg.Model == f.failModel {
		return nil, errFactory
	}
	f.serial++
	a := &fakeAgent{serial: f.serial, askErr: f.askErr, release: f.release, started: f.started}
	f.agents = append(f.agents, a)
	if f.greet {
		return &greetingAgent{fakeAgent: a, greeting: fmt.Sprintf("hello from %d", f.serial)}, nil
	}
	return a, nil
}

func (f *fakeFactory) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeFactory) setFailModel(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failModel = model
}

func (f *fakeFactory) setPanics(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = v
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serial
}

func (f *fakeFactory) agent(i int) *fakeAgent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agents[i]
}

var errFactory = errors.New("model server unreachable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		MaxSessions:   3,
		RenewAfter:    10 * time.Minute,
		ZombieAfter:   30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

func newTestRegistry(t *testing.T, cfg Config, f agent.Factory, clock *fakeClock, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	r, err := NewRegistry(cfg, f, testLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}
