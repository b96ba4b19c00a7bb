// ABOUTME: Tests for the periodic sweep: renewal of stale agents, zombie handling, isolation
// ABOUTME: Covers failed and panicking renewals plus the ticker-driven Run loop

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/store"
)

func TestSweep_RenewsTimedOutSessions(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	ledger := store.NewMemoryStore(0)
	r := newTestRegistry(t, testConfig(), f, clock, WithStore(ledger))
	ctx := context.Background()

	id, err := r.NewSession(ctx, agent.Config{Model: "echo"})
	require.NoError(t, err)
	before, _ := r.Get(id)

	// Not yet stale: nothing happens.
	clock.Advance(5 * time.Minute)
	res := r.Sweep(ctx)
	assert.Zero(t, res.Renewed)

	clock.Advance(6 * time.Minute)
	res = r.Sweep(ctx)
	assert.Equal(t, 1, res.Renewed)
	assert.Empty(t, res.Reclaimed)

	after, ok := r.Get(id)
	require.True(t, ok, "renewed session keeps its id")
	assert.True(t, after.CreatedAt.After(before.CreatedAt))
	assert.Equal(t, int64(1), after.Renewals)
	assert.True(t, f.agent(0).closed.Load())

	got, err := r.Ask(ctx, id, "hi")
	require.NoError(t, err)
	assert.Equal(t, "agent-2: hi", got)

	events, err := ledger.ListEvents(ctx, store.EventFilter{Kind: store.EventRenewed})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSweep_ReclaimsZombiesAndNeverRenewsThem(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	r := newTestRegistry(t, testConfig(), f, clock)
	ctx := context.Background()

	zombie, err := r.NewSession(ctx, agent.Config{})
	require.NoError(t, err)
	active, err := r.NewSession(ctx, agent.Config{})
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)
	_, err = r.Ask(ctx, active, "ping")
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)

	res := r.Sweep(ctx)
	assert.Equal(t, []string{zombie}, res.Reclaimed)
	assert.Equal(t, 1, res.Renewed, "only the active session is renewed")
	assert.Equal(t, 3, f.created())

	_, ok := r.Get(zombie)
	assert.False(t, ok)
}

func TestSweep_SessionWithinZombieWindowSurvives(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(t, testConfig(), &fakeFactory{}, clock)
	ctx := context.Background()

	id, err := r.NewSession(ctx, agent.Config{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		clock.Advance(5 * time.Minute)
		_, err := r.Ask(ctx, id, "still here")
		require.NoError(t, err)
		r.Sweep(ctx)
	}

	_, ok := r.Get(id)
	assert.True(t, ok)
}

func TestSweep_RenewalFailureIsIsolatedAndRetried(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	ledger := store.NewMemoryStore(0)
	r := newTestRegistry(t, testConfig(), f, clock, WithStore(ledger))
	ctx := context.Background()

	bad, err := r.NewSession(ctx, agent.Config{Model: "flaky"})
	require.NoError(t, err)
	good, err := r.NewSession(ctx, agent.Config{Model: "solid"})
	require.NoError(t, err)

	f.setFailModel("flaky")
	clock.Advance(11 * time.Minute)
	res := r.Sweep(ctx)
	assert.Equal(t, 1, res.Renewed)
	assert.Equal(t, 1, res.Failed)

	_, err = r.Ask(ctx, bad, "hello?")
	assert.ErrorIs(t, err, agent.ErrAgent)
	got, err := r.Ask(ctx, good, "hello?")
	require.NoError(t, err)
	assert.Contains(t, got, "hello?")

	failed, err := ledger.ListEvents(ctx, store.EventFilter{Kind: store.EventRenewFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, bad, failed[0].SessionID)
	assert.Contains(t, failed[0].Detail, errFactory.Error())

	// Next cycle retries the failed session even though only a minute passed.
	f.setFailModel("")
	clock.Advance(time.Minute)
	res = r.Sweep(ctx)
	assert.Equal(t, 1, res.Renewed)
	assert.Zero(t, res.Failed)

	_, err = r.Ask(ctx, bad, "back?")
	assert.NoError(t, err)
}

func TestSweep_PanickingFactoryDoesNotStopSweep(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	r := newTestRegistry(t, testConfig(), f, clock)
	ctx := context.Background()

	_, err := r.NewSession(ctx, agent.Config{})
	require.NoError(t, err)
	_, err = r.NewSession(ctx, agent.Config{})
	require.NoError(t, err)

	f.setPanics(true)
	clock.Advance(11 * time.Minute)

	var res SweepResult
	require.NotPanics(t, func() { res = r.Sweep(ctx) })
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 2, r.Len())
}

func TestSweep_CancelledContextStopsRenewals(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	r := newTestRegistry(t, testConfig(), f, clock)

	_, err := r.NewSession(context.Background(), agent.Config{})
	require.NoError(t, err)
	clock.Advance(11 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Sweep(ctx)
	assert.Zero(t, res.Renewed)
	assert.Equal(t, 1, f.created())
}

func TestRun_SweepsOnTicker(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	cfg := testConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	r := newTestRegistry(t, cfg, f, clock)

	_, err := r.NewSession(context.Background(), agent.Config{})
	require.NoError(t, err)
	clock.Advance(11 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return f.created() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.False(t, r.Running())
}

func TestRun_SurvivesPanickingSweeps(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	cfg := testConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	r := newTestRegistry(t, cfg, f, clock)

	_, err := r.NewSession(context.Background(), agent.Config{})
	require.NoError(t, err)
	f.setPanics(true)
	clock.Advance(11 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	// Several ticks worth of failing renewals, then recovery.
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.configs) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	f.setPanics(false)
	require.Eventually(t, func() bool { return f.created() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

// gatedFactory blocks creations while armed until gate is closed, failing
// early if its context is cancelled first.
type gatedFactory struct {
	inner   agent.Factory
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedFactory) CreateAgent(ctx context.Context, cfg agent.Config) (agent.Agent, error) {
	if g.armed.Load() {
		g.entered <- struct{}{}
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.inner.CreateAgent(ctx, cfg)
}

func TestSweep_CancellationDoesNotAbortRenewalInProgress(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFactory{}
	g := &gatedFactory{inner: f, entered: make(chan struct{}, 1), gate: make(chan struct{})}
	r := newTestRegistry(t, testConfig(), g, clock)

	id, err := r.NewSession(context.Background(), agent.Config{})
	require.NoError(t, err)
	clock.Advance(11 * time.Minute)
	g.armed.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan SweepResult, 1)
	go func() { results <- r.Sweep(ctx) }()

	<-g.entered
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(g.gate)

	res := <-results
	assert.Equal(t, 1, res.Renewed)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 2, f.created())

	snap, ok := r.Get(id)
	require.True(t, ok)
	assert.True(t, snap.Live)
}
