// ABOUTME: Registry maps session IDs to proxies and enforces the session capacity
// ABOUTME: Creates, asks, deletes, and reclaims sessions; the sweep lives in sweep.go

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/cooldown"
	"github.com/2389/chatbot-gateway/internal/metrics"
	"github.com/2389/chatbot-gateway/internal/store"
)

var (
	// ErrSessionNotFound indicates an unknown or already removed session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCapacityExceeded indicates the registry is full even after reclaiming zombies.
	ErrCapacityExceeded = errors.New("too many sessions")

	// ErrRegistryClosed indicates the registry has been shut down.
	ErrRegistryClosed = errors.New("session registry closed")
)

// Config holds the registry tunables.
type Config struct {
	MaxSessions   int
	RenewAfter    time.Duration
	ZombieAfter   time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		MaxSessions:   10,
		RenewAfter:    time.Hour,
		ZombieAfter:   2 * time.Hour,
		SweepInterval: time.Minute,
	}
}

// Validate checks the tunables for consistency.
func (c Config) Validate() error {
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.MaxSessions)
	}
	if c.RenewAfter <= 0 {
		return fmt.Errorf("renew after must be positive, got %s", c.RenewAfter)
	}
	if c.ZombieAfter <= c.RenewAfter {
		return fmt.Errorf("zombie after (%s) must be greater than renew after (%s)", c.ZombieAfter, c.RenewAfter)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithStore records lifecycle events in s.
func WithStore(s store.Store) Option {
	return func(r *Registry) { r.ledger = s }
}

// WithMetrics records session metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithIDGenerator replaces the random UUID session ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) { r.newID = gen }
}

// Registry is the single source of truth for which sessions exist.
type Registry struct {
	cfg     Config
	factory agent.Factory
	logger  *slog.Logger
	ledger  store.Store
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	// mu guards the map structure only; per-session state lives in Proxy.
	mu       sync.RWMutex
	sessions map[string]*Proxy
	pending  map[string]struct{} // IDs of creations in progress
	closed   bool

	running atomic.Bool
}

// NewRegistry creates a Registry that builds agents with factory.
func NewRegistry(cfg Config, factory agent.Factory, logger *slog.Logger, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if factory == nil {
		return nil, errors.New("agent factory is required")
	}

	r := &Registry{
		cfg:      cfg,
		factory:  factory,
		logger:   logger.With("component", "session"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		sessions: make(map[string]*Proxy),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the registry tunables.
func (r *Registry) Config() Config { return r.cfg }

// NewSession creates a session with an agent built from cfg and returns its ID.
// When the registry is full, zombies are reclaimed first; if that frees
// nothing the call fails with ErrCapacityExceeded. A failed agent creation
// registers nothing.
func (r *Registry) NewSession(ctx context.Context, cfg agent.Config) (string, error) {
	id, err := r.reserve(ctx)
	if err != nil {
		return "", err
	}

	p := newProxy(id, cfg, r.factory, r.now, r.logger)
	if err := p.Renew(ctx); err != nil {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		return "", err
	}

	r.mu.Lock()
	delete(r.pending, id)
	if r.closed {
		r.mu.Unlock()
		p.close()
		return "", ErrRegistryClosed
	}
	r.sessions[id] = p
	live := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created",
		"session_id", id,
		"model", cfg.Model,
		"live_sessions", live,
	)
	r.record(ctx, store.EventCreated, p, "")
	r.metrics.SessionCreated()
	r.metrics.SetLiveSessions(live)
	return id, nil
}

// reserve claims a capacity slot and a fresh ID for a creation in progress.
func (r *Registry) reserve(ctx context.Context) (string, error) {
	if id, ok, err := r.tryReserve(); err != nil || ok {
		return id, err
	}

	r.ReclaimZombies(ctx)

	id, ok, err := r.tryReserve()
	if err != nil {
		return "", err
	}
	if !ok {
		r.metrics.SessionRejected()
		return "", fmt.Errorf("%w: max %d", ErrCapacityExceeded, r.cfg.MaxSessions)
	}
	return id, nil
}

func (r *Registry) tryReserve() (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", false, ErrRegistryClosed
	}
	if len(r.sessions)+len(r.pending) >= r.cfg.MaxSessions {
		return "", false, nil
	}

	for {
		id := r.newID()
		if _, taken := r.sessions[id]; taken {
			continue
		}
		if _, taken := r.pending[id]; taken {
			continue
		}
		r.pending[id] = struct{}{}
		return id, true, nil
	}
}

// Ask forwards prompt to the session's agent. The registry lock is not held
// while the agent works.
func (r *Registry) Ask(ctx context.Context, id, prompt string) (string, error) {
	p, ok := r.lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	start := time.Now()
	resp, err := p.Ask(ctx, prompt)
	r.metrics.Ask(askResult(err), time.Since(start))
	return resp, err
}

func askResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cooldown.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	default:
		return "agent_error"
	}
}

// Delete removes the session and releases its agent.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	p, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	live := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	p.close()
	r.logger.Info("session deleted", "session_id", id, "live_sessions", live)
	r.record(ctx, store.EventDeleted, p, "")
	r.metrics.SessionsRemoved(metrics.ReasonDeleted, 1)
	r.metrics.SetLiveSessions(live)
	return nil
}

// ReclaimZombies removes every session idle for longer than ZombieAfter and
// returns their IDs, sorted.
func (r *Registry) ReclaimZombies(ctx context.Context) []string {
	r.mu.Lock()
	var victims []*Proxy
	for id, p := range r.sessions {
		if p.IsZombie(r.cfg.ZombieAfter) {
			delete(r.sessions, id)
			victims = append(victims, p)
		}
	}
	live := len(r.sessions)
	r.mu.Unlock()

	if len(victims) == 0 {
		return nil
	}

	ids := make([]string, 0, len(victims))
	for _, p := range victims {
		p.close()
		r.record(ctx, store.EventReclaimed, p, "idle since "+p.LastUsedAt().UTC().Format(time.RFC3339))
		ids = append(ids, p.ID())
	}
	sort.Strings(ids)

	r.logger.Info("reclaimed zombie sessions",
		"session_ids", ids,
		"live_sessions", live,
	)
	r.metrics.SessionsRemoved(metrics.ReasonReclaimed, len(ids))
	r.metrics.SetLiveSessions(live)
	return ids
}

// Get returns a snapshot of one session.
func (r *Registry) Get(id string) (Snapshot, bool) {
	p, ok := r.lookup(id)
	if !ok {
		return Snapshot{}, false
	}
	return p.Snapshot(), true
}

// InitialResponse returns the answer to the session's initial prompt.
// Absent when the session is gone, has no initial prompt, or is mid-renewal.
func (r *Registry) InitialResponse(id string) (string, bool) {
	p, ok := r.lookup(id)
	if !ok {
		return "", false
	}
	return p.InitialResponse()
}

// List returns snapshots of all sessions, oldest first.
func (r *Registry) List() []Snapshot {
	proxies := r.proxies()
	out := make([]Snapshot, 0, len(proxies))
	for _, p := range proxies {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close removes every session and rejects further creations.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	victims := make([]*Proxy, 0, len(r.sessions))
	for _, p := range r.sessions {
		victims = append(victims, p)
	}
	r.sessions = make(map[string]*Proxy)
	r.mu.Unlock()

	for _, p := range victims {
		p.close()
	}
	r.logger.Info("session registry closed", "dropped_sessions", len(victims))
	r.metrics.SessionsRemoved(metrics.ReasonShutdown, len(victims))
	r.metrics.SetLiveSessions(0)
}

func (r *Registry) lookup(id string) (*Proxy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.sessions[id]
	return p, ok
}

func (r *Registry) proxies() []*Proxy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Proxy, 0, len(r.sessions))
	for _, p := range r.sessions {
		out = append(out, p)
	}
	return out
}

// record appends a ledger event. Ledger failures are logged, never returned.
func (r *Registry) record(ctx context.Context, kind store.EventKind, p *Proxy, detail string) {
	if r.ledger == nil {
		return
	}
	e := &store.SessionEvent{
		SessionID: p.ID(),
		Kind:      kind,
		Model:     p.Config().Model,
		Detail:    detail,
		Timestamp: r.now().UTC(),
	}
	if err := r.ledger.AppendEvent(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Warn("failed to record session event",
			"session_id", p.ID(),
			"kind", kind,
			"error", err,
		)
	}
}
