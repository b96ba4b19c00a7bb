// ABOUTME: Entry point for chatbot-gateway, the session registry server
// ABOUTME: Cobra root command with serve, init, token, health, and sessions subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is overridden with -ldflags "-X main.version=..." at release.
var version = "dev"

const banner = `
       _           _   _           _
   ___| |__   __ _| |_| |__   ___ | |_
  / __| '_ \ / _' | __| '_ \ / _ \| __|
 | (__| | | | (_| | |_| |_) | (_) | |_
  \___|_| |_|\__,_|\__|_.__/ \___/ \__|
`

// configFlag is the global --config value.
var configFlag string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatbot-gateway",
		Short:         "Serve long-lived chatbot sessions over gRPC",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default $CHATBOT_CONFIG or $XDG_CONFIG_HOME/chatbot/gateway.yaml)")

	root.AddCommand(
		newServeCmd(),
		newInitCmd(),
		newTokenCmd(),
		newHealthCmd(),
		newSessionsCmd(),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
