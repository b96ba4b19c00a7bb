// Package session keeps the bounded set of live chat sessions.
//
// # Overview
//
// Each session is a Proxy: a stable ID plus the agent currently serving it.
// Agents accumulate context with every exchange, so the Registry replaces
// them ("renews") once they are older than RenewAfter. The client keeps
// using the same session ID throughout.
//
// # Lifecycle
//
//	absent -> live -> (timed out) -> renewed -> ... -> zombie -> absent
//
//   - NewSession creates the first agent synchronously; a failure registers nothing
//   - the sweep renews live sessions whose agent is older than RenewAfter
//   - a session idle for longer than ZombieAfter is a zombie: never renewed,
//     removed by the next sweep or when a creation finds the registry full
//   - Delete removes a session immediately
//
// A single ZombieAfter threshold serves both the sweep and capacity-driven
// reclamation.
//
// # Capacity
//
// At most MaxSessions sessions exist, counting creations still in progress.
// A creation that finds the registry full first reclaims zombies, then fails
// with ErrCapacityExceeded if nothing was freed. Rejected creations are not
// queued.
//
// # Concurrency
//
// The registry lock guards only the map. Each Proxy keeps its timestamps in
// atomics and guards its agent with its own mutex, which a renewal holds
// for its full duration. Ask reads the agent under that mutex and calls it
// without any lock, so:
//
//   - slow agents never block other sessions, creation, deletion or the sweep
//   - an ask already running when a renewal starts finishes on the old agent
//   - an ask that arrives during a renewal waits for the new agent
//
// A failed renewal leaves the session without an agent; asks fail with
// agent.ErrAgent until the next sweep renews it successfully.
//
// # Observability
//
// Lifecycle events go to an optional store.Store ledger and counters to an
// optional *metrics.Metrics. Sweeps are traced.
package session
