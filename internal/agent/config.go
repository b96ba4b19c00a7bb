// ABOUTME: Session configuration carried unchanged through every agent (re)creation
// ABOUTME: Decodes the client's JSON config and splits backend:model selectors

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Config is the immutable per-session configuration handed to the factory.
type Config struct {
	// Model selects the backend and optionally its model, as "backend" or
	// "backend:model". Empty selects the default backend.
	Model string `json:"model,omitempty"`

	// InitialPrompt is asked once after every (re)creation; the answer is the
	// session's initial response.
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

// ParseConfig decodes a JSON session config. An empty or all-whitespace
// string yields the zero Config.
func ParseConfig(raw string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if dec.More() {
		return Config{}, fmt.Errorf("%w: trailing data after config object", ErrInvalidConfig)
	}
	return cfg, nil
}

// ParseModel splits a "backend:model" selector. The model part may be empty.
func ParseModel(selector string) (backend, model string) {
	backend, model, _ = strings.Cut(strings.TrimSpace(selector), ":")
	return strings.ToLower(strings.TrimSpace(backend)), strings.TrimSpace(model)
}
