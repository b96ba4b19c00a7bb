// ABOUTME: gRPC unary interceptor authenticating chatbot RPCs with bearer tokens
// ABOUTME: Health checks and reflection stay open so health checkers and tooling work unauthenticated

package auth

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var exemptServices = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.v1.ServerReflection/",
	"/grpc.reflection.v1alpha.ServerReflection/",
}

// Exempt reports whether fullMethod is served without authentication.
func Exempt(fullMethod string) bool {
	for _, prefix := range exemptServices {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

func logAuthFailure(ctx context.Context, logger *slog.Logger, method string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{"method", method, "reason", err.Error()}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		attrs = append(attrs, "peer_addr", p.Addr.String())
	}
	logger.Warn("auth failure", attrs...)
}

// UnaryInterceptor authenticates every non-exempt unary call with tokens.
// A nil verifier disables authentication and marks calls as Anonymous.
func UnaryInterceptor(tokens TokenVerifier, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if tokens == nil {
			return handler(WithCaller(ctx, Anonymous), req)
		}
		if Exempt(info.FullMethod) {
			return handler(ctx, req)
		}

		caller, err := authenticate(ctx, tokens)
		if err != nil {
			logAuthFailure(ctx, logger, info.FullMethod, err)
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(WithCaller(ctx, caller), req)
	}
}

// StreamInterceptor is the streaming counterpart of UnaryInterceptor. The
// chatbot API is unary; this guards reflection-adjacent and future streams.
func StreamInterceptor(tokens TokenVerifier, logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if tokens == nil || Exempt(info.FullMethod) {
			return handler(srv, ss)
		}

		caller, err := authenticate(ss.Context(), tokens)
		if err != nil {
			logAuthFailure(ss.Context(), logger, info.FullMethod, err)
			return status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: WithCaller(ss.Context(), caller)})
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context { return w.ctx }

func authenticate(ctx context.Context, tokens TokenVerifier) (Caller, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Caller{}, errMissingHeader
	}
	var header string
	if values := md.Get("authorization"); len(values) > 0 {
		header = values[0]
	}
	token, err := bearerToken(header)
	if err != nil {
		return Caller{}, err
	}
	subject, err := tokens.Verify(token)
	if err != nil {
		return Caller{}, ErrInvalidToken
	}
	return Caller{Subject: subject}, nil
}
