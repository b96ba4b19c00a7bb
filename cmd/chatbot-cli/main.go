// ABOUTME: Entry point for chatbot-cli, a gRPC client for chatbot-gateway
// ABOUTME: Root command holds connection flags shared by create, ask, delete, and chat

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	addr    string
	token   string
	timeout time.Duration
}

var globals globalFlags

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatbot-cli",
		Short:         "Talk to chatbot sessions on a chatbot-gateway",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&globals.addr, "addr", envOr("CHATBOT_ADDR", "localhost:50052"), "gateway gRPC address")
	pf.StringVar(&globals.token, "token", os.Getenv("CHATBOT_TOKEN"), "bearer token")
	pf.DurationVar(&globals.timeout, "timeout", 2*time.Minute, "per-request timeout")

	root.AddCommand(
		newCreateCmd(),
		newAskCmd(),
		newDeleteCmd(),
		newChatCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}
