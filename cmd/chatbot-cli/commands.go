// ABOUTME: Subcommands of chatbot-cli: one-shot create, ask, delete and an interactive chat
// ABOUTME: chat opens a session, loops over stdin lines, and deletes the session on exit

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/chatbot-gateway/internal/agent"
)

type sessionFlags struct {
	model         string
	initialPrompt string
	rawConfig     string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", `backend selector, "backend" or "backend:model"`)
	cmd.Flags().StringVarP(&f.initialPrompt, "initial-prompt", "p", "", "prompt asked after every agent (re)creation")
	cmd.Flags().StringVar(&f.rawConfig, "config-json", "", "raw session config JSON (overrides --model and --initial-prompt)")
}

func (f *sessionFlags) open(ctx context.Context, c *client) (id, initial string, err error) {
	if f.rawConfig != "" {
		return c.createRaw(ctx, f.rawConfig)
	}
	return c.create(ctx, agent.Config{Model: f.model, InitialPrompt: f.initialPrompt})
}

// withClient dials the gateway for the duration of fn.
func withClient(fn func(cmd *cobra.Command, c *client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := dial(globals)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd, c, args)
	}
}

func newCreateCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session and print its ID",
		Args:  cobra.NoArgs,
		RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
			id, initial, err := f.open(cmd.Context(), c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, id)
			if initial != "" {
				color.New(color.FgHiBlack).Fprintln(out, initial)
			}
			return nil
		}),
	}
	f.register(cmd)
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask SESSION_ID PROMPT...",
		Short: "Ask a session one question",
		Args:  cobra.MinimumNArgs(2),
		RunE: withClient(func(cmd *cobra.Command, c *client, args []string) error {
			reply, err := c.ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		}),
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SESSION_ID...",
		Short: "Delete one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client, args []string) error {
			for _, id := range args {
				if err := c.delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("%s: %s", id, describe(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			}
			return nil
		}),
	}
}

func newChatCmd() *cobra.Command {
	var (
		f    sessionFlags
		keep bool
	)
	cmd := &cobra.Command{
		Use:   "chat [SESSION_ID]",
		Short: "Chat interactively, in a new session or an existing one",
		Args:  cobra.MaximumNArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client, args []string) error {
			var existing string
			if len(args) == 1 {
				existing = args[0]
				keep = true
			}
			return runChat(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), &f, existing, keep)
		}),
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the session open on exit")
	return cmd
}

func runChat(ctx context.Context, c *client, in io.Reader, out io.Writer, f *sessionFlags, id string, keep bool) error {
	you := color.New(color.FgGreen, color.Bold)
	bot := color.New(color.FgCyan)
	dim := color.New(color.FgHiBlack)
	warn := color.New(color.FgYellow)

	if id == "" {
		var initial string
		var err error
		id, initial, err = f.open(ctx, c)
		if err != nil {
			return err
		}
		dim.Fprintf(out, "session %s\n", id)
		if initial != "" {
			bot.Fprintln(out, initial)
		}
	}
	if !keep {
		defer func() {
			if err := c.delete(context.WithoutCancel(ctx), id); err != nil {
				warn.Fprintf(out, "closing session: %s\n", describe(err))
			}
		}()
	}
	dim.Fprintln(out, "type /quit or press ctrl-d to leave")

	scanner := bufio.NewScanner(in)
	for {
		you.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		reply, err := c.ask(ctx, id, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			warn.Fprintln(out, describe(err))
			continue
		}
		bot.Fprintln(out, reply)
	}
}
