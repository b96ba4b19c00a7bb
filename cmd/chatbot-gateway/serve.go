// ABOUTME: The serve command: loads config, applies flag overrides, and runs the gateway
// ABOUTME: Prints the startup banner and initializes tracing before serving

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/chatbot-gateway/internal/config"
	"github.com/2389/chatbot-gateway/internal/gateway"
	"github.com/2389/chatbot-gateway/internal/tracing"
)

type serveFlags struct {
	grpcAddr      string
	httpAddr      string
	maxSessions   int
	renewAfter    time.Duration
	zombieAfter   time.Duration
	sweepInterval time.Duration
	reflection    bool
	askCooldown   time.Duration
	logLevel      string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.grpcAddr, "grpc-addr", "", "gRPC listen address")
	fl.StringVar(&f.httpAddr, "http-addr", "", "HTTP listen address (empty disables)")
	fl.IntVar(&f.maxSessions, "max-sessions", 0, "maximum concurrent sessions")
	fl.DurationVar(&f.renewAfter, "renew-after", 0, "recreate a session's agent after this age")
	fl.DurationVar(&f.zombieAfter, "zombie-after", 0, "remove sessions idle for longer than this")
	fl.DurationVar(&f.sweepInterval, "sweep-interval", 0, "how often to renew and reclaim sessions")
	fl.BoolVar(&f.reflection, "reflection", true, "serve gRPC reflection")
	fl.DurationVar(&f.askCooldown, "ask-cooldown", 0, "minimum interval between asks per backend (0 disables)")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

// overrides returns only the flags the user set.
func (f *serveFlags) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed
	if changed("grpc-addr") {
		o.GRPCAddr = &f.grpcAddr
	}
	if changed("http-addr") {
		o.HTTPAddr = &f.httpAddr
	}
	if changed("max-sessions") {
		o.MaxSessions = &f.maxSessions
	}
	if changed("renew-after") {
		o.RenewAfter = &f.renewAfter
	}
	if changed("zombie-after") {
		o.ZombieAfter = &f.zombieAfter
	}
	if changed("sweep-interval") {
		o.SweepInterval = &f.sweepInterval
	}
	if changed("reflection") {
		o.Reflection = &f.reflection
	}
	if changed("ask-cooldown") {
		o.AskCooldown = &f.askCooldown
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	return o
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	ctx := cmd.Context()
	configPath := config.ResolvePath(configFlag)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Apply(f.overrides(cmd)); err != nil {
		return err
	}

	printBanner(configPath, cfg)
	logger := setupLogger(cfg.Logging)

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	logger.Info("starting chatbot-gateway",
		"version", version,
		"config", configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
		"max_sessions", cfg.Sessions.MaxSessions,
		"renew_after", cfg.Sessions.RenewAfter,
		"zombie_after", cfg.Sessions.ZombieAfter,
		"sweep_interval", cfg.Sessions.SweepInterval,
		"ask_cooldown", cfg.Cooldown.AskInterval,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	return gw.Run(ctx)
}

func printBanner(configPath string, cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)

	if configPath == "" {
		configPath = "(defaults)"
	}
	line := func(label, value string) {
		green.Print("    ▶ ")
		fmt.Printf("%-10s %s\n", label+":", value)
	}
	line("Config", configPath)
	line("gRPC", cfg.Server.GRPCAddr)
	if cfg.Server.HTTPAddr != "" {
		line("HTTP", cfg.Server.HTTPAddr)
	}
	line("Sessions", fmt.Sprintf("max %d, renew %s, zombie %s", cfg.Sessions.MaxSessions, cfg.Sessions.RenewAfter, cfg.Sessions.ZombieAfter))
	line("Backend", cfg.Chatbot.DefaultBackend)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("%-10s ", "Tailscale:")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Println("    ! auth disabled (no auth.jwt_secret)")
	}
	fmt.Println()
}
