// ABOUTME: Commands that query a running gateway over HTTP: health, token, and sessions
// ABOUTME: They read the same config as serve to find the HTTP address and JWT secret

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/chatbot-gateway/internal/auth"
	"github.com/2389/chatbot-gateway/internal/config"
	"github.com/2389/chatbot-gateway/internal/gateway"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(config.ResolvePath(configFlag))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that a running gateway is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.HTTPAddr == "" {
				return errors.New("server.http_addr is empty; the HTTP server is disabled")
			}
			if err := checkHealth(cmd.Context(), "http://"+cfg.Server.HTTPAddr); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}

func checkHealth(ctx context.Context, baseURL string) error {
	resp, err := get(ctx, baseURL+"/health/ready", "")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set; auth is disabled")
			}
			v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
			if err != nil {
				return err
			}
			token, err := v.Generate(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 never expires)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List live sessions on a running gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("CHATBOT_TOKEN")
			}
			list, err := fetchSessions(cmd.Context(), "http://"+cfg.Server.HTTPAddr, token)
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default $CHATBOT_TOKEN)")
	return cmd
}

func fetchSessions(ctx context.Context, baseURL, token string) (*gateway.SessionsResponse, error) {
	resp, err := get(ctx, baseURL+"/api/sessions", token)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("listing sessions: status %d: %s", resp.StatusCode, body)
	}

	var list gateway.SessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	return &list, nil
}

func printSessions(w io.Writer, list *gateway.SessionsResponse) {
	fmt.Fprintf(w, "%d of %d sessions\n", list.Count, list.MaxSessions)
	if list.Count == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tCREATED\tLAST USED\tRENEWALS\tASKS")
	for _, s := range list.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.Model,
			s.CreatedAt.Format(time.RFC3339), s.LastUsedAt.Format(time.RFC3339),
			s.Renewals, s.Asks)
	}
	tw.Flush()
}

func get(ctx context.Context, url, token string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
