// ABOUTME: Built-in echo backend that repeats prompts back with a turn counter
// ABOUTME: Needs no credentials; used for local development and tests

package agent

import (
	"context"
	"fmt"
)

// EchoBackendName is the selector for the echo backend.
const EchoBackendName = "echo"

// EchoBackend creates EchoAgents.
type EchoBackend struct{}

// Name implements Backend.
func (EchoBackend) Name() string { return EchoBackendName }

// NewAgent implements Backend. The model is ignored.
func (EchoBackend) NewAgent(_ context.Context, _ string) (Agent, error) {
	return &EchoAgent{}, nil
}

// EchoAgent answers "<prompt> (turn N)" where N counts exchanges since the
// agent was created, which makes renewals observable.
type EchoAgent struct {
	history
}

// Ask implements Agent.
func (a *EchoAgent) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAgent, err)
	}
	reply := fmt.Sprintf("%s (turn %d)", prompt, a.Exchanges()+1)
	a.record(prompt, reply)
	return reply, nil
}
