// ABOUTME: ChatbotService gRPC implementation translating RPCs onto the session registry
// ABOUTME: Validates required fields, maps registry errors to status codes, and logs every outcome

package chat

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/metrics"
	"github.com/2389/chatbot-gateway/internal/tracing"
	pb "github.com/2389/chatbot-gateway/proto/chatbotpb"
)

// Sessions is the registry surface the service needs.
type Sessions interface {
	NewSession(ctx context.Context, cfg agent.Config) (string, error)
	Ask(ctx context.Context, id, prompt string) (string, error)
	Delete(ctx context.Context, id string) error
	InitialResponse(id string) (string, bool)
}

// Service implements pb.ChatbotServiceServer.
type Service struct {
	pb.UnimplementedChatbotServiceServer

	sessions Sessions
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a Service over sessions. m may be nil.
func NewService(sessions Sessions, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		metrics:  m,
		logger:   logger.With("component", "chat"),
	}
}

// CreateSession parses the JSON config and opens a session. An empty config
// selects the default backend with no initial prompt.
func (s *Service) CreateSession(ctx context.Context, req *pb.CreateSessionRequest) (resp *pb.CreateSessionResponse, err error) {
	const method = "CreateSession"
	ctx, span := tracing.StartSpan(ctx, "chat.CreateSession")
	start := time.Now()
	defer func() {
		tracing.EndSpan(span, err)
		s.finish(method, start, err, "session_id", resp.GetSessionId())
	}()

	cfg, err := agent.ParseConfig(req.GetConfig())
	if err != nil {
		return nil, toStatus(err)
	}

	id, err := s.sessions.NewSession(ctx, cfg)
	if err != nil {
		return nil, toStatus(err)
	}

	resp = pb.NewCreateSessionResponse().SetSessionId(id)
	// The session may already be gone again; the greeting is optional.
	if greeting, ok := s.sessions.InitialResponse(id); ok {
		resp.SetInitialResponse(greeting)
	}
	return resp, nil
}

// Ask forwards a prompt to the session's agent.
func (s *Service) Ask(ctx context.Context, req *pb.AskRequest) (resp *pb.AskResponse, err error) {
	const method = "Ask"
	ctx, span := tracing.StartSpan(ctx, "chat.Ask")
	start := time.Now()
	defer func() {
		tracing.EndSpan(span, err)
		s.finish(method, start, err, "session_id", req.GetSessionId())
	}()

	if req.GetSessionId() == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if req.GetPrompt() == "" {
		return nil, status.Error(codes.InvalidArgument, "prompt is required")
	}

	reply, err := s.sessions.Ask(ctx, req.GetSessionId(), req.GetPrompt())
	if err != nil {
		return nil, toStatus(err)
	}
	return pb.NewAskResponse().SetResponse(reply), nil
}

// DeleteSession removes a session and echoes its ID.
func (s *Service) DeleteSession(ctx context.Context, req *pb.DeleteSessionRequest) (resp *pb.DeleteSessionResponse, err error) {
	const method = "DeleteSession"
	ctx, span := tracing.StartSpan(ctx, "chat.DeleteSession")
	start := time.Now()
	defer func() {
		tracing.EndSpan(span, err)
		s.finish(method, start, err, "session_id", req.GetSessionId())
	}()

	if req.GetSessionId() == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	if err := s.sessions.Delete(ctx, req.GetSessionId()); err != nil {
		return nil, toStatus(err)
	}
	return pb.NewDeleteSessionResponse().SetSessionId(req.GetSessionId()), nil
}

// finish records the terminal outcome of an RPC.
func (s *Service) finish(method string, start time.Time, err error, attrs ...any) {
	code := status.Code(err)
	s.metrics.RPC(method, code.String())

	attrs = append(attrs, "method", method, "code", code.String(), "duration", time.Since(start))
	if err != nil {
		attrs = append(attrs, "error", status.Convert(err).Message())
		s.logger.Warn("rpc failed", attrs...)
		return
	}
	s.logger.Info("rpc completed", attrs...)
}
