// ABOUTME: In-memory conversation transcript kept by each agent instance
// ABOUTME: Grows with every exchange until the owning agent is discarded on renewal

package agent

import "sync"

// Role identifies the speaker of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role
	Content string
}

type history struct {
	mu    sync.Mutex
	turns []Turn
}

func (h *history) snapshot() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *history) record(prompt, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Content: prompt},
		Turn{Role: RoleAssistant, Content: reply},
	)
}

// Exchanges returns how many prompt/reply pairs the agent has seen.
func (h *history) Exchanges() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns) / 2
}
