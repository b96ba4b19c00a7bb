// ABOUTME: Routes session configs to registered backends and builds ready-to-use agents
// ABOUTME: Applies the per-backend cooldown and primes new agents with the initial prompt

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2389/chatbot-gateway/internal/cooldown"
	"github.com/2389/chatbot-gateway/internal/tracing"
)

// ErrBackendAlreadyRegistered indicates a backend with the same name is already routed.
var ErrBackendAlreadyRegistered = errors.New("backend already registered")

// Backend creates agents for one provider.
type Backend interface {
	Name() string
	NewAgent(ctx context.Context, model string) (Agent, error)
}

type route struct {
	backend Backend
	limiter *cooldown.Limiter
}

// Router is the gateway's Factory. It resolves a config's model selector to a
// backend, wraps the backend's agent with that backend's cooldown limiter and
// runs the initial prompt.
type Router struct {
	routes         map[string]*route
	defaultBackend string
	mu             sync.RWMutex
	logger         *slog.Logger
}

// NewRouter creates a Router that uses defaultBackend for configs without a model.
func NewRouter(defaultBackend string, logger *slog.Logger) *Router {
	return &Router{
		routes:         make(map[string]*route),
		defaultBackend: defaultBackend,
		logger:         logger,
	}
}

// Register adds a backend. limiter may be nil for an unthrottled backend; a
// single limiter is shared by every agent the backend creates.
func (r *Router) Register(b Backend, limiter *cooldown.Limiter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if _, exists := r.routes[name]; exists {
		return fmt.Errorf("%w: %s", ErrBackendAlreadyRegistered, name)
	}
	r.routes[name] = &route{backend: b, limiter: limiter}
	r.logger.Info("backend registered",
		"backend", name,
		"cooldown", limiter.Interval(),
	)
	return nil
}

// Backends returns the registered backend names, sorted.
func (r *Router) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve validates cfg's model selector and returns the backend and model it names.
func (r *Router) Resolve(cfg Config) (backend, model string, err error) {
	backend, model = ParseModel(cfg.Model)
	if backend == "" {
		backend = r.defaultBackend
	}

	r.mu.RLock()
	_, ok := r.routes[backend]
	r.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownModel, cfg.Model)
	}
	return backend, model, nil
}

// CreateAgent implements Factory.
func (r *Router) CreateAgent(ctx context.Context, cfg Config) (Agent, error) {
	backendName, model, err := r.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	rt := r.routes[backendName]
	r.mu.RUnlock()

	ctx, span := tracing.StartSpan(ctx, "agent.create",
		attribute.String("agent.backend", backendName),
		attribute.String("agent.model", model),
	)
	a, err := r.create(ctx, rt, model, cfg)
	tracing.EndSpan(span, err)
	return a, err
}

func (r *Router) create(ctx context.Context, rt *route, model string, cfg Config) (Agent, error) {
	name := rt.backend.Name()
	inner, err := rt.backend.NewAgent(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreation, name, err)
	}

	a := &routedAgent{
		inner:   inner,
		backend: name,
		model:   model,
	}
	a.ask = cooldown.Wrap(rt.limiter, a.tracedAsk)

	if cfg.InitialPrompt != "" {
		// Priming is maintenance work and must not spend the caller's cooldown.
		resp, err := a.Ask(cooldown.WithoutCooldown(ctx), cfg.InitialPrompt)
		if err != nil {
			if cerr := Release(inner); cerr != nil {
				r.logger.Warn("failed to release unprimed agent", "backend", name, "error", cerr)
			}
			return nil, fmt.Errorf("%w: %s: initial prompt: %w", ErrCreation, name, err)
		}
		a.initialResponse = resp
	}

	return a, nil
}

// routedAgent is what the router hands out: the backend's agent behind the
// backend's cooldown, plus the answer to the initial prompt.
type routedAgent struct {
	inner           Agent
	backend         string
	model           string
	initialResponse string
	ask             func(context.Context, string) (string, error)
}

func (a *routedAgent) Ask(ctx context.Context, prompt string) (string, error) {
	return a.ask(ctx, prompt)
}

func (a *routedAgent) tracedAsk(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "agent.ask",
		attribute.String("agent.backend", a.backend),
		attribute.String("agent.model", a.model),
	)
	resp, err := a.inner.Ask(ctx, prompt)
	if err != nil && !errors.Is(err, ErrAgent) {
		err = fmt.Errorf("%w: %s: %w", ErrAgent, a.backend, err)
	}
	tracing.EndSpan(span, err)
	return resp, err
}

func (a *routedAgent) InitialResponse() string { return a.initialResponse }

func (a *routedAgent) Close() error { return Release(a.inner) }
