// ABOUTME: Periodic sweep that reclaims zombie sessions and renews stale agents
// ABOUTME: Runs on a ticker for the process lifetime; one bad session never stops it

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/store"
	"github.com/2389/chatbot-gateway/internal/tracing"
)

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Reclaimed []string
	Renewed   int
	Failed    int
}

// Run sweeps every SweepInterval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	r.logger.Info("session sweep started",
		"interval", r.cfg.SweepInterval,
		"renew_after", r.cfg.RenewAfter,
		"zombie_after", r.cfg.ZombieAfter,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session sweep stopped")
			return nil
		case <-ticker.C:
			r.safeSweep(ctx)
		}
	}
}

// Running reports whether Run is active.
func (r *Registry) Running() bool { return r.running.Load() }

func (r *Registry) safeSweep(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("session sweep panicked", "panic", rec)
		}
	}()
	r.Sweep(ctx)
}

// Sweep performs one pass: zombies are reclaimed, then every remaining
// session whose agent is older than RenewAfter is renewed. Zombies are never
// renewed. Renewal failures are logged and recorded, then the pass moves on.
func (r *Registry) Sweep(ctx context.Context) SweepResult {
	ctx, span := tracing.StartSpan(ctx, "session.sweep")
	defer span.End()

	var res SweepResult
	res.Reclaimed = r.ReclaimZombies(ctx)

	for _, p := range r.proxies() {
		if ctx.Err() != nil {
			break
		}
		if p.IsZombie(r.cfg.ZombieAfter) || !p.IsTimedOut(r.cfg.RenewAfter) {
			continue
		}

		// Cancellation stops the pass between sessions, never inside a renewal.
		err := r.renew(context.WithoutCancel(ctx), p)
		switch {
		case err == nil:
			res.Renewed++
		case errors.Is(err, ErrSessionNotFound):
			// Deleted while we were looking at it.
		default:
			res.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.reclaimed", len(res.Reclaimed)),
		attribute.Int("sweep.renewed", res.Renewed),
		attribute.Int("sweep.failed", res.Failed),
	)
	if res.Renewed > 0 || res.Failed > 0 {
		r.logger.Info("session sweep finished",
			"reclaimed", len(res.Reclaimed),
			"renewed", res.Renewed,
			"failed", res.Failed,
		)
	} else {
		r.logger.Debug("session sweep finished", "reclaimed", len(res.Reclaimed))
	}
	return res
}

// renew renews one proxy, converting a panic in the factory into an error.
func (r *Registry) renew(ctx context.Context, p *Proxy) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic during renewal: %v", agent.ErrCreation, rec)
		}
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			r.logger.Error("session renewal failed",
				"session_id", p.ID(),
				"model", p.Config().Model,
				"error", err,
			)
			r.record(ctx, store.EventRenewFailed, p, err.Error())
			r.metrics.Renewal(err)
		}
	}()

	if err := p.Renew(ctx); err != nil {
		return err
	}

	r.logger.Info("session renewed",
		"session_id", p.ID(),
		"generation", p.generation.Load(),
	)
	r.record(ctx, store.EventRenewed, p, "")
	r.metrics.Renewal(nil)
	return nil
}
