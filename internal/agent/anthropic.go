// ABOUTME: Anthropic messages backend; each agent replays its own transcript
// ABOUTME: Concatenates text blocks of the reply and ignores other block types

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackendName is the selector for the Anthropic backend.
const AnthropicBackendName = "anthropic"

const defaultAnthropicMaxTokens = 1024

// AnthropicConfig configures the Anthropic backend.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

// AnthropicBackend creates agents that talk to the messages API.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicBackend builds a backend from cfg.
func NewAnthropicBackend(cfg AnthropicConfig, opts ...option.RequestOption) *AnthropicBackend {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicBackend{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return AnthropicBackendName }

// NewAgent implements Backend. An empty model falls back to the configured one.
func (b *AnthropicBackend) NewAgent(_ context.Context, model string) (Agent, error) {
	if model == "" {
		model = b.model
	}
	if model == "" {
		return nil, errors.New("anthropic: no model configured")
	}
	return &anthropicAgent{backend: b, model: model}, nil
}

type anthropicAgent struct {
	history
	backend *AnthropicBackend
	model   string
}

func (a *anthropicAgent) Ask(ctx context.Context, prompt string) (string, error) {
	turns := a.snapshot()
	messages := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	resp, err := a.backend.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		Messages:  messages,
		MaxTokens: a.backend.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %w", ErrAgent, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	reply := sb.String()
	if reply == "" {
		return "", fmt.Errorf("%w: anthropic: empty reply", ErrAgent)
	}

	a.record(prompt, reply)
	return reply, nil
}
