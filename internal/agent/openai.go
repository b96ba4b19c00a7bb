// ABOUTME: OpenAI chat-completions backend; each agent replays its own transcript
// ABOUTME: Works with any OpenAI-compatible endpoint through a configurable base URL

package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackendName is the selector for the OpenAI backend.
const OpenAIBackendName = "openai"

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

// OpenAIBackend creates agents that talk to the chat completions API.
type OpenAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIBackend builds a backend from cfg. Extra request options are
// appended after the ones derived from cfg.
func NewOpenAIBackend(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIBackend {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIBackend{
		client:    openai.NewClient(reqOpts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return OpenAIBackendName }

// NewAgent implements Backend. An empty model falls back to the configured one.
func (b *OpenAIBackend) NewAgent(_ context.Context, model string) (Agent, error) {
	if model == "" {
		model = b.model
	}
	if model == "" {
		return nil, errors.New("openai: no model configured")
	}
	return &openAIAgent{backend: b, model: model}, nil
}

type openAIAgent struct {
	history
	backend *OpenAIBackend
	model   string
}

func (a *openAIAgent) Ask(ctx context.Context, prompt string) (string, error) {
	turns := a.snapshot()
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(t.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	}
	if a.backend.maxTokens > 0 {
		params.MaxTokens = openai.Int(a.backend.maxTokens)
	}

	resp, err := a.backend.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ErrAgent, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices returned", ErrAgent)
	}

	reply := resp.Choices[0].Message.Content
	a.record(prompt, reply)
	return reply, nil
}
