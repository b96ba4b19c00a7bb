// ABOUTME: Configuration loading and parsing for chatbot-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the complete chatbot-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Sessions  SessionsConfig  `yaml:"sessions" toml:"sessions"`
	Cooldown  CooldownConfig  `yaml:"cooldown" toml:"cooldown"`
	Chatbot   ChatbotConfig   `yaml:"chatbot" toml:"chatbot"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing" toml:"tracing"`
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	GRPCAddr   string `yaml:"grpc_addr" toml:"grpc_addr"`
	HTTPAddr   string `yaml:"http_addr" toml:"http_addr"` // empty disables the HTTP server
	Reflection bool   `yaml:"reflection" toml:"reflection"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// SessionsConfig holds the session registry tunables
type SessionsConfig struct {
	MaxSessions   int           `yaml:"max_sessions" toml:"max_sessions"`
	RenewAfter    time.Duration `yaml:"-" toml:"-"`
	ZombieAfter   time.Duration `yaml:"-" toml:"-"`
	SweepInterval time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	RenewAfterRaw    string `yaml:"renew_after" toml:"renew_after"`
	ZombieAfterRaw   string `yaml:"zombie_after" toml:"zombie_after"`
	SweepIntervalRaw string `yaml:"sweep_interval" toml:"sweep_interval"`
}

// CooldownConfig holds the per-backend ask cooldown
type CooldownConfig struct {
	AskInterval    time.Duration `yaml:"-" toml:"-"` // 0 disables the cooldown
	AskIntervalRaw string        `yaml:"ask_interval" toml:"ask_interval"`
}

// ChatbotConfig selects and configures agent backends
type ChatbotConfig struct {
	DefaultBackend string          `yaml:"default_backend" toml:"default_backend"`
	OpenAI         OpenAIConfig    `yaml:"openai" toml:"openai"`
	Anthropic      AnthropicConfig `yaml:"anthropic" toml:"anthropic"`
}

// OpenAIConfig configures the openai backend. It is registered only when
// APIKey is set.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Model     string `yaml:"model" toml:"model"`
	MaxTokens int64  `yaml:"max_tokens" toml:"max_tokens"`
}

// AnthropicConfig configures the anthropic backend. It is registered only
// when APIKey is set.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Model     string `yaml:"model" toml:"model"`
	MaxTokens int64  `yaml:"max_tokens" toml:"max_tokens"`
}

// DatabaseConfig holds the lifecycle ledger location
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"` // empty disables the ledger
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"` // empty disables auth
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Exporter    string `yaml:"exporter" toml:"exporter"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint"`
	Insecure    bool   `yaml:"insecure" toml:"insecure"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:   "localhost:50052",
			HTTPAddr:   "localhost:8080",
			Reflection: true,
		},
		Sessions: SessionsConfig{
			MaxSessions:   10,
			RenewAfter:    time.Hour,
			ZombieAfter:   2 * time.Hour,
			SweepInterval: time.Minute,
		},
		Chatbot: ChatbotConfig{
			DefaultBackend: "echo",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "chatbot-gateway",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Fields missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, formatFor(path))
}

// Format names a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes data in the given format over the defaults, then validates.
func Parse(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.GRPCAddr == "" {
		return fmt.Errorf("%w: server.grpc_addr is required (or enable tailscale)", ErrInvalid)
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("%w: tailscale.hostname is required when tailscale is enabled", ErrInvalid)
	}

	s := c.Sessions
	if s.MaxSessions <= 0 {
		return fmt.Errorf("%w: sessions.max_sessions must be positive", ErrInvalid)
	}
	if s.RenewAfter <= 0 {
		return fmt.Errorf("%w: sessions.renew_after must be positive", ErrInvalid)
	}
	if s.ZombieAfter <= s.RenewAfter {
		return fmt.Errorf("%w: sessions.zombie_after (%s) must exceed sessions.renew_after (%s)", ErrInvalid, s.ZombieAfter, s.RenewAfter)
	}
	if s.SweepInterval <= 0 {
		return fmt.Errorf("%w: sessions.sweep_interval must be positive", ErrInvalid)
	}
	if c.Cooldown.AskInterval < 0 {
		return fmt.Errorf("%w: cooldown.ask_interval must not be negative", ErrInvalid)
	}
	if c.Chatbot.DefaultBackend == "" {
		return fmt.Errorf("%w: chatbot.default_backend is required", ErrInvalid)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q must be debug, info, warn or error", ErrInvalid, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q must be text or json", ErrInvalid, c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", ErrInvalid)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("%w: tracing.exporter %q must be stdout or otlp", ErrInvalid, c.Tracing.Exporter)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"sessions.renew_after", cfg.Sessions.RenewAfterRaw, &cfg.Sessions.RenewAfter},
		{"sessions.zombie_after", cfg.Sessions.ZombieAfterRaw, &cfg.Sessions.ZombieAfter},
		{"sessions.sweep_interval", cfg.Sessions.SweepIntervalRaw, &cfg.Sessions.SweepInterval},
		{"cooldown.ask_interval", cfg.Cooldown.AskIntervalRaw, &cfg.Cooldown.AskInterval},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
