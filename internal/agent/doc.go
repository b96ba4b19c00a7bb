// Package agent defines the conversational agents that back chat sessions
// and the router that creates them.
//
// # Overview
//
// An Agent answers prompts and accumulates conversation history as it goes.
// Agents are expensive and their context only ever grows, so the session
// layer throws them away periodically and asks a Factory for a new one.
//
// # Contracts
//
//   - Agent: Ask(ctx, prompt) returns the reply or an error wrapping ErrAgent
//   - Factory: CreateAgent(ctx, cfg) returns a new Agent or an error wrapping
//     ErrCreation (or ErrUnknownModel for a selector nobody serves)
//   - Greeter: optional, exposes the reply to the config's initial prompt
//
// # Config
//
// Clients send the session config as JSON:
//
//	{"model": "openai:gpt-4o-mini", "initial_prompt": "You are a helpful bot."}
//
// The model selector is "backend" or "backend:model". An empty selector uses
// the router's default backend. Unknown JSON fields are rejected.
//
// # Router
//
// Router is the production Factory:
//
//	router := agent.NewRouter("echo", logger)
//	router.Register(agent.EchoBackend{}, cooldown.New(2*time.Second))
//	a, err := router.CreateAgent(ctx, cfg)
//
// Each backend gets one cooldown limiter, shared by every agent it creates,
// so the interval applies across sessions and survives renewals. When the
// config has an initial prompt the router asks it right away with the
// cooldown bypassed; a failure there is reported as ErrCreation.
//
// # Backends
//
//   - echo: replies "<prompt> (turn N)"; no credentials needed
//   - openai: chat completions via github.com/openai/openai-go
//   - anthropic: messages via github.com/anthropics/anthropic-sdk-go
//
// # Thread Safety
//
// Router is safe for concurrent use. Agents tolerate concurrent Ask calls
// but the transcript order of overlapping exchanges is unspecified.
package agent
