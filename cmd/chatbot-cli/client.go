// ABOUTME: Thin wrapper over the generated ChatbotService client
// ABOUTME: Adds bearer-token metadata, per-call timeouts, and readable error text

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/chat"
	pb "github.com/2389/chatbot-gateway/proto/chatbotpb"
)

type client struct {
	conn    *grpc.ClientConn
	rpc     pb.ChatbotServiceClient
	token   string
	timeout time.Duration
}

func dial(g globalFlags) (*client, error) {
	conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", g.addr, err)
	}
	return newClient(conn, g.token, g.timeout), nil
}

func newClient(conn *grpc.ClientConn, token string, timeout time.Duration) *client {
	return &client{conn: conn, rpc: pb.NewChatbotServiceClient(conn), token: token, timeout: timeout}
}

func (c *client) Close() error { return c.conn.Close() }

func (c *client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *client) create(ctx context.Context, cfg agent.Config) (id, initial string, err error) {
	raw := ""
	if cfg != (agent.Config{}) {
		b, err := json.Marshal(cfg)
		if err != nil {
			return "", "", err
		}
		raw = string(b)
	}
	return c.createRaw(ctx, raw)
}

func (c *client) createRaw(ctx context.Context, raw string) (id, initial string, err error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.rpc.CreateSession(ctx, pb.NewCreateSessionRequest().SetConfig(raw))
	if err != nil {
		return "", "", err
	}
	return resp.GetSessionId(), resp.GetInitialResponse(), nil
}

func (c *client) ask(ctx context.Context, id, prompt string) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.rpc.Ask(ctx, pb.NewAskRequest().SetSessionId(id).SetPrompt(prompt))
	if err != nil {
		return "", err
	}
	return resp.GetResponse(), nil
}

func (c *client) delete(ctx context.Context, id string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.rpc.DeleteSession(ctx, pb.NewDeleteSessionRequest().SetSessionId(id))
	return err
}

// describe renders gRPC errors as "Code: message", with the retry delay for
// rate-limited calls.
func describe(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	msg := fmt.Sprintf("%s: %s", st.Code(), st.Message())
	if d, ok := chat.RetryAfter(err); ok {
		msg += fmt.Sprintf(" (retry in %s)", d.Round(time.Second))
	}
	return msg
}
