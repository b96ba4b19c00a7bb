// ABOUTME: Proxy owns one session's agent and its creation and last-use timestamps
// ABOUTME: Renewal swaps the agent under a per-proxy lock; asks run outside any lock
// ABOUTME: A replaced agent is released only after the asks already using it return

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/cooldown"
)

// Proxy is the stable identity of a session. The agent behind it is replaced
// on every renewal while the session ID stays the same.
type Proxy struct {
	id       string
	config   agent.Config
	factory  agent.Factory
	now      func() time.Time
	logger   *slog.Logger
	openedAt time.Time

	// Unix nanoseconds, read lock-free by the sweep.
	createdAt  atomic.Int64
	lastUsedAt atomic.Int64

	generation atomic.Int64
	asks       atomic.Int64
	live       atomic.Bool
	initial    atomic.Pointer[string]

	// mu guards handle and closed, and is held for the whole of a renewal.
	mu     sync.Mutex
	handle *lease
	closed bool
}

// lease counts the asks running against one agent. The agent is released
// once it has been retired and the last of those asks has returned.
type lease struct {
	agent agent.Agent

	mu       sync.Mutex
	inFlight int
	retired  bool
}

func (l *lease) acquire() {
	l.mu.Lock()
	l.inFlight++
	l.mu.Unlock()
}

// done ends one ask and reports whether the agent should now be released.
func (l *lease) done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight--
	return l.retired && l.inFlight == 0
}

// retire marks the agent replaced and reports whether it can be released now.
func (l *lease) retire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retired = true
	return l.inFlight == 0
}

func newProxy(id string, cfg agent.Config, factory agent.Factory, now func() time.Time, logger *slog.Logger) *Proxy {
	p := &Proxy{
		id:       id,
		config:   cfg,
		factory:  factory,
		now:      now,
		logger:   logger,
		openedAt: now(),
	}
	// A session that is never asked ages from its creation.
	p.lastUsedAt.Store(p.openedAt.UnixNano())
	return p
}

// ID returns the session ID.
func (p *Proxy) ID() string { return p.id }

// Config returns the session config used for every renewal.
func (p *Proxy) Config() agent.Config { return p.config }

// CreatedAt is when the current agent was created.
func (p *Proxy) CreatedAt() time.Time { return time.Unix(0, p.createdAt.Load()) }

// LastUsedAt is when the session was last asked, or created if never asked.
func (p *Proxy) LastUsedAt() time.Time { return time.Unix(0, p.lastUsedAt.Load()) }

// Renew drops the current agent and builds a new one from the stored config.
// On failure the proxy is left without an agent and CreatedAt is unchanged.
func (p *Proxy) Renew(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, p.id)
	}

	p.dropHandleLocked()

	a, err := p.factory.CreateAgent(ctx, p.config)
	if err != nil {
		if !errors.Is(err, agent.ErrCreation) && !errors.Is(err, agent.ErrUnknownModel) {
			err = fmt.Errorf("%w: %w", agent.ErrCreation, err)
		}
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: factory returned no agent", agent.ErrCreation)
	}

	p.handle = &lease{agent: a}
	p.live.Store(true)
	if g, ok := a.(agent.Greeter); ok {
		resp := g.InitialResponse()
		p.initial.Store(&resp)
	}

	created := p.now().UnixNano()
	if prev := p.createdAt.Load(); created <= prev {
		created = prev + 1
	}
	p.createdAt.Store(created)
	p.generation.Add(1)
	return nil
}

// IsTimedOut reports whether the current agent is older than renewAfter.
func (p *Proxy) IsTimedOut(renewAfter time.Duration) bool {
	return p.now().Sub(p.CreatedAt()) > renewAfter
}

// IsZombie reports whether the session has gone unused for longer than zombieAfter.
func (p *Proxy) IsZombie(zombieAfter time.Duration) bool {
	return p.now().Sub(p.LastUsedAt()) > zombieAfter
}

// Ask touches the session and forwards prompt to the current agent. The
// touch happens first so a slow call keeps the session from looking idle.
// A renewal may replace the agent while the call runs; the call still
// completes against the agent it started on.
func (p *Proxy) Ask(ctx context.Context, prompt string) (string, error) {
	p.lastUsedAt.Store(p.now().UnixNano())

	p.mu.Lock()
	h, closed := p.handle, p.closed
	if h != nil && !closed {
		h.acquire()
	}
	p.mu.Unlock()

	if closed {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, p.id)
	}
	if h == nil {
		return "", fmt.Errorf("%w: session %s has no live agent", agent.ErrAgent, p.id)
	}

	defer func() {
		if h.done() {
			p.release(h.agent)
		}
	}()

	p.asks.Add(1)
	resp, err := h.agent.Ask(ctx, prompt)
	if err != nil {
		if errors.Is(err, agent.ErrAgent) || errors.Is(err, cooldown.ErrRateLimited) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", agent.ErrAgent, err)
	}
	return resp, nil
}

// InitialResponse returns the current agent's answer to the initial prompt.
func (p *Proxy) InitialResponse() (string, bool) {
	if !p.live.Load() {
		return "", false
	}
	s := p.initial.Load()
	if s == nil {
		return "", false
	}
	return *s, true
}

// close releases the agent and marks the proxy dead. It waits for a renewal
// in progress, so the agent that renewal produced is released too.
func (p *Proxy) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.dropHandleLocked()
}

// dropHandleLocked detaches the current agent. It is released here unless an
// ask is still running on it, in which case that ask releases it on return.
func (p *Proxy) dropHandleLocked() {
	old := p.handle
	p.handle = nil
	p.live.Store(false)
	p.initial.Store(nil)
	if old != nil && old.retire() {
		p.release(old.agent)
	}
}

func (p *Proxy) release(a agent.Agent) {
	if err := agent.Release(a); err != nil {
		p.logger.Warn("failed to release agent", "session_id", p.id, "error", err)
	}
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	OpenedAt   time.Time `json:"opened_at"`
	CreatedAt  time.Time `json:"agent_created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Renewals   int64     `json:"renewals"`
	Asks       int64     `json:"asks"`
	Live       bool      `json:"live"`
}

// Snapshot returns the session's current state without blocking on a renewal.
func (p *Proxy) Snapshot() Snapshot {
	renewals := p.generation.Load() - 1
	if renewals < 0 {
		renewals = 0
	}
	s := Snapshot{
		ID:         p.id,
		Model:      p.config.Model,
		OpenedAt:   p.openedAt,
		LastUsedAt: p.LastUsedAt(),
		Renewals:   renewals,
		Asks:       p.asks.Load(),
		Live:       p.live.Load(),
	}
	if p.createdAt.Load() != 0 {
		s.CreatedAt = p.CreatedAt()
	}
	return s
}
