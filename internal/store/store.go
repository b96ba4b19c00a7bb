// ABOUTME: Store interface and data types for the session lifecycle ledger
// ABOUTME: Records what happened to each chat session; never used to restore sessions

package store

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEvent is returned when an event is missing its session ID or kind.
var ErrInvalidEvent = errors.New("invalid session event")

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventRenewed     EventKind = "renewed"
	EventRenewFailed EventKind = "renew_failed"
	EventReclaimed   EventKind = "reclaimed"
	EventDeleted     EventKind = "deleted"
)

// ValidEventKinds lists every kind the ledger accepts.
var ValidEventKinds = []EventKind{
	EventCreated,
	EventRenewed,
	EventRenewFailed,
	EventReclaimed,
	EventDeleted,
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	for _, v := range ValidEventKinds {
		if k == v {
			return true
		}
	}
	return false
}

// SessionEvent is one ledger entry.
type SessionEvent struct {
	ID        string    // UUID v4, generated when empty
	SessionID string    // session the event belongs to
	Kind      EventKind // what happened
	Model     string    // model selector of the session config
	Detail    string    // free-form context, e.g. the renewal error
	Timestamp time.Time // generated when zero
}

// EventFilter narrows ListEvents results.
type EventFilter struct {
	SessionID string     // exact match when non-empty
	Kind      EventKind  // exact match when non-empty
	Since     *time.Time // events at or after this time
	Limit     int        // max results (default 100, max 1000)
}

// Store persists session events.
type Store interface {
	// AppendEvent writes e, filling in ID and Timestamp when unset.
	AppendEvent(ctx context.Context, e *SessionEvent) error

	// ListEvents returns matching events, newest first.
	ListEvents(ctx context.Context, f EventFilter) ([]SessionEvent, error)

	Close() error
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

func validateEvent(e *SessionEvent) error {
	if e.SessionID == "" {
		return errors.Join(ErrInvalidEvent, errors.New("session id is required"))
	}
	if !e.Kind.Valid() {
		return errors.Join(ErrInvalidEvent, errors.New("unknown kind "+string(e.Kind)))
	}
	return nil
}
