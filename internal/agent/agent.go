// ABOUTME: Agent and Factory contracts plus the error taxonomy for agent collaborators
// ABOUTME: Any backend that can answer a prompt plugs in by implementing Agent

package agent

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrCreation indicates a factory could not produce a working agent.
	ErrCreation = errors.New("agent creation failed")

	// ErrAgent indicates a live agent failed to answer.
	ErrAgent = errors.New("agent error")

	// ErrUnknownModel indicates the config selects a backend that is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidConfig indicates a session config that cannot be decoded.
	ErrInvalidConfig = errors.New("invalid session config")
)

// Agent is one stateful conversational responder.
type Agent interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Factory produces a fresh Agent for a session config.
type Factory interface {
	CreateAgent(ctx context.Context, cfg Config) (Agent, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(ctx context.Context, cfg Config) (Agent, error)

// CreateAgent calls f.
func (f FactoryFunc) CreateAgent(ctx context.Context, cfg Config) (Agent, error) {
	return f(ctx, cfg)
}

// Greeter is implemented by agents that were primed with an initial prompt.
type Greeter interface {
	InitialResponse() string
}

// Release closes a if it holds resources. Agents that are not io.Closers
// are simply dropped.
func Release(a Agent) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
