// ABOUTME: The init command: interactively writes a starter gateway config file
// ABOUTME: Generates a random JWT secret so auth is enabled from the first run

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/2389/chatbot-gateway/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := configFlag
			if out == "" {
				out = config.DefaultPath()
			}
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), out, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(in io.Reader, out io.Writer, path string, force bool) error {
	if path == "" {
		return errors.New("no config path: pass --config")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	fmt.Fprintln(out, "chatbot-gateway setup")
	fmt.Fprintln(out, "Press enter to accept the default shown in brackets.")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	def := config.Default()
	cfg := config.Default()
	cfg.Server.GRPCAddr = prompt(reader, out, "gRPC listen address", def.Server.GRPCAddr)
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP listen address", def.Server.HTTPAddr)

	maxSessions, err := strconv.Atoi(prompt(reader, out, "Maximum sessions", strconv.Itoa(def.Sessions.MaxSessions)))
	if err != nil || maxSessions <= 0 {
		return fmt.Errorf("maximum sessions must be a positive integer")
	}
	cfg.Sessions.MaxSessions = maxSessions
	cfg.Sessions.RenewAfterRaw = prompt(reader, out, "Renew agents after", def.Sessions.RenewAfter.String())
	cfg.Sessions.ZombieAfterRaw = prompt(reader, out, "Reclaim idle sessions after", def.Sessions.ZombieAfter.String())
	cfg.Sessions.SweepIntervalRaw = def.Sessions.SweepInterval.String()

	cfg.Chatbot.DefaultBackend = prompt(reader, out, "Default backend (echo, openai, anthropic)", def.Chatbot.DefaultBackend)
	switch cfg.Chatbot.DefaultBackend {
	case "openai":
		cfg.Chatbot.OpenAI.APIKey = "${OPENAI_API_KEY}"
		cfg.Chatbot.OpenAI.Model = prompt(reader, out, "OpenAI model", "gpt-4o-mini")
	case "anthropic":
		cfg.Chatbot.Anthropic.APIKey = "${ANTHROPIC_API_KEY}"
		cfg.Chatbot.Anthropic.Model = prompt(reader, out, "Anthropic model", "claude-sonnet-4-5")
	}

	dataDir := filepath.Dir(path)
	cfg.Database.Path = prompt(reader, out, "Session ledger database", filepath.Join(dataDir, "chatbot.db"))

	secret, err := generateSecret()
	if err != nil {
		return err
	}
	cfg.Auth.JWTSecret = secret

	data, err := renderConfig(cfg)
	if err != nil {
		return err
	}
	// Validate what we are about to write so the first serve does not fail.
	if _, err := config.Parse(data, config.FormatYAML); err != nil {
		return err
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", path)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  chatbot-gateway serve")
	fmt.Fprintln(out, "\nTo mint a client token:")
	fmt.Fprintln(out, "  chatbot-gateway token --subject me")
	return nil
}

// renderConfig marshals cfg to YAML. Durations are written from their raw
// string fields, filling any that are empty from the parsed values.
func renderConfig(cfg *config.Config) ([]byte, error) {
	fill := func(raw *string, d fmt.Stringer) {
		if *raw == "" {
			*raw = d.String()
		}
	}
	fill(&cfg.Sessions.RenewAfterRaw, cfg.Sessions.RenewAfter)
	fill(&cfg.Sessions.ZombieAfterRaw, cfg.Sessions.ZombieAfter)
	fill(&cfg.Sessions.SweepIntervalRaw, cfg.Sessions.SweepInterval)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return defaultVal
	}
	if input == "" {
		return defaultVal
	}
	return input
}
