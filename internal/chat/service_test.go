// ABOUTME: End-to-end tests of ChatbotService over an in-memory gRPC connection
// ABOUTME: Uses a real registry with the echo backend and a controllable cooldown clock

package chat

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/cooldown"
	"github.com/2389/chatbot-gateway/internal/metrics"
	"github.com/2389/chatbot-gateway/internal/session"
	pb "github.com/2389/chatbot-gateway/proto/chatbotpb"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	client   pb.ChatbotServiceClient
	registry *session.Registry
	clock    *testClock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv serves a Service over bufconn. cooldownInterval 0 disables the limiter.
func newTestEnv(t *testing.T, maxSessions int, cooldownInterval time.Duration) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	router := agent.NewRouter(agent.EchoBackendName, testLogger())
	require.NoError(t, router.Register(agent.EchoBackend{}, cooldown.NewWithClock(cooldownInterval, clock.Now)))

	cfg := session.DefaultConfig()
	cfg.MaxSessions = maxSessions
	reg, err := session.NewRegistry(cfg, router, testLogger(), session.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterChatbotServiceServer(srv, NewService(reg, metrics.New(), testLogger()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{
		client:   pb.NewChatbotServiceClient(conn),
		registry: reg,
		clock:    clock,
	}
}

func (e *testEnv) create(t *testing.T, config string) *pb.CreateSessionResponse {
	t.Helper()
	resp, err := e.client.CreateSession(context.Background(), pb.NewCreateSessionRequest().SetConfig(config))
	require.NoError(t, err)
	require.NotEmpty(t, resp.GetSessionId())
	return resp
}

func TestCreateSession_DefaultConfig(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	resp := env.create(t, "")

	assert.Empty(t, resp.GetInitialResponse())
	assert.Equal(t, 1, env.registry.Len())
}

func TestCreateSession_InitialPrompt(t *testing.T) {
	env := newTestEnv(t, 5, time.Minute)

	resp := env.create(t, `{"model":"echo","initial_prompt":"you are a pirate"}`)
	assert.Equal(t, "you are a pirate (turn 1)", resp.GetInitialResponse())

	// Priming bypassed the cooldown, so the first real ask goes through.
	ask, err := env.client.Ask(context.Background(), pb.NewAskRequest().SetSessionId(resp.GetSessionId()).SetPrompt("ahoy"))
	require.NoError(t, err)
	assert.Equal(t, "ahoy (turn 2)", ask.GetResponse())
}

func TestCreateSession_InvalidConfig(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	for _, config := range []string{`{not json`, `{"temperature":1}`, `{"model":"nope"}`} {
		_, err := env.client.CreateSession(context.Background(), pb.NewCreateSessionRequest().SetConfig(config))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), config)
	}
	assert.Zero(t, env.registry.Len())
}

func TestCreateSession_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t, 1, 0)

	first := env.create(t, "")

	_, err := env.client.CreateSession(context.Background(), pb.NewCreateSessionRequest())
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = env.client.DeleteSession(context.Background(), pb.NewDeleteSessionRequest().SetSessionId(first.GetSessionId()))
	require.NoError(t, err)

	env.create(t, "")
}

func TestAsk_RequiresFields(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	id := env.create(t, "").GetSessionId()

	_, err := env.client.Ask(context.Background(), pb.NewAskRequest().SetPrompt("hello"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.Ask(context.Background(), pb.NewAskRequest().SetSessionId(id))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAsk_UpdatesLastUsed(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	id := env.create(t, "").GetSessionId()

	before, ok := env.registry.Get(id)
	require.True(t, ok)
	env.clock.Advance(time.Minute)

	resp, err := env.client.Ask(context.Background(), pb.NewAskRequest().SetSessionId(id).SetPrompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi (turn 1)", resp.GetResponse())

	after, ok := env.registry.Get(id)
	require.True(t, ok)
	assert.True(t, after.LastUsedAt.After(before.LastUsedAt))
}

func TestAsk_UnknownSession(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	_, err := env.client.Ask(context.Background(), pb.NewAskRequest().SetSessionId("missing").SetPrompt("x"))

	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Zero(t, env.registry.Len())
}

func TestAsk_RateLimited(t *testing.T) {
	env := newTestEnv(t, 5, 10*time.Second)
	id := env.create(t, "").GetSessionId()
	req := pb.NewAskRequest().SetSessionId(id).SetPrompt("hi")

	_, err := env.client.Ask(context.Background(), req)
	require.NoError(t, err)

	env.clock.Advance(4 * time.Second)
	resp, err := env.client.Ask(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	delay, ok := RetryAfter(err)
	require.True(t, ok)
	assert.InDelta(t, (6 * time.Second).Seconds(), delay.Seconds(), 0.001)

	env.clock.Advance(6 * time.Second)
	_, err = env.client.Ask(context.Background(), req)
	require.NoError(t, err)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	id := env.create(t, "").GetSessionId()

	resp, err := env.client.DeleteSession(context.Background(), pb.NewDeleteSessionRequest().SetSessionId(id))
	require.NoError(t, err)
	assert.Equal(t, id, resp.GetSessionId())

	_, err = env.client.DeleteSession(context.Background(), pb.NewDeleteSessionRequest().SetSessionId(id))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.DeleteSession(context.Background(), pb.NewDeleteSessionRequest())
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAsk_CallerContextErrorsKeepTheirCode(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	id := env.create(t, "").GetSessionId()
	svc := NewService(env.registry, nil, testLogger())
	req := pb.NewAskRequest().SetSessionId(id).SetPrompt("hi")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Ask(canceled, req)
	assert.Equal(t, codes.Canceled, status.Code(err), err)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = svc.Ask(expired, req)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err), err)

	// The session survives a caller giving up.
	resp, err := env.client.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hi (turn 1)", resp.GetResponse())
}
