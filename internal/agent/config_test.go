// ABOUTME: Tests for session config decoding and model selector parsing
// ABOUTME: Covers empty configs, malformed JSON, unknown fields, and selector forms

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Config
		wantErr bool
	}{
		{name: "empty", raw: "", want: Config{}},
		{name: "whitespace", raw: "  \n", want: Config{}},
		{name: "empty object", raw: "{}", want: Config{}},
		{
			name: "full",
			raw:  `{"model":"openai:gpt-4o-mini","initial_prompt":"be nice"}`,
			want: Config{Model: "openai:gpt-4o-mini", InitialPrompt: "be nice"},
		},
		{name: "malformed", raw: `{"model":`, wantErr: true},
		{name: "unknown field", raw: `{"access_token":"x"}`, wantErr: true},
		{name: "not an object", raw: `"echo"`, wantErr: true},
		{name: "trailing data", raw: `{} {}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		selector    string
		wantBackend string
		wantModel   string
	}{
		{"", "", ""},
		{"echo", "echo", ""},
		{"OpenAI", "openai", ""},
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{" anthropic : claude-3-5-haiku-latest ", "anthropic", "claude-3-5-haiku-latest"},
		{"ollama:llama3:8b", "ollama", "llama3:8b"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			backend, model := ParseModel(tt.selector)
			assert.Equal(t, tt.wantBackend, backend)
			assert.Equal(t, tt.wantModel, model)
		})
	}
}
