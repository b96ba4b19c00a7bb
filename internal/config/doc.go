// Package config handles configuration loading for chatbot-gateway.
//
// # Configuration File
//
// The file is located in this order:
//
//  1. --config flag
//  2. CHATBOT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/chatbot/gateway.yaml (or ~/.config/chatbot/gateway.yaml)
//
// With none present the built-in defaults are used. Files ending in .toml
// are read as TOML; everything else is YAML. Both use the same keys.
//
// # Environment Variable Expansion
//
// Values can reference environment variables before parsing:
//
//	chatbot:
//	  openai:
//	    api_key: "${OPENAI_API_KEY}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Durations use time.ParseDuration syntax and are parsed after decoding:
//
//	sessions:
//	  max_sessions: 10
//	  renew_after: "1h"
//	  zombie_after: "2h"
//	  sweep_interval: "1m"
//	cooldown:
//	  ask_interval: "2s"
//
// # Validation
//
// Validate enforces that zombie_after exceeds renew_after, that counts and
// intervals are positive, and that enumerated fields hold known values.
// All failures wrap ErrInvalid.
//
// # Flag Overrides
//
// Overrides holds the tunables that can be set on the command line. Apply
// replaces only the fields that were set and validates the result again.
package config
