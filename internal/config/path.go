// ABOUTME: Resolution of the config file location from flag, environment, or XDG directory
// ABOUTME: Returns an empty path when nothing is configured so callers fall back to defaults

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "CHATBOT_CONFIG"

// DefaultPath returns $XDG_CONFIG_HOME/chatbot/gateway.yaml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "chatbot", "gateway.yaml")
}

// ResolvePath picks the config file: flag first, then CHATBOT_CONFIG, then
// DefaultPath if that file exists. Returns "" when none applies.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	p := DefaultPath()
	if p == "" {
		return ""
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return p
}

// LoadOrDefault loads path, or returns validated defaults when path is "".
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}
