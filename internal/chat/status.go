// ABOUTME: Translation of registry and agent errors into gRPC status errors
// ABOUTME: Rate-limited calls carry a RetryInfo detail with the remaining cooldown

package chat

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/cooldown"
	"github.com/2389/chatbot-gateway/internal/session"
)

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var limited *cooldown.RateLimitedError
	switch {
	case errors.As(err, &limited):
		return rateLimitedStatus(limited)
	case errors.Is(err, agent.ErrInvalidConfig), errors.Is(err, agent.ErrUnknownModel):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrCapacityExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, agent.ErrCreation), errors.Is(err, agent.ErrAgent):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, session.ErrRegistryClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

func rateLimitedStatus(e *cooldown.RateLimitedError) error {
	st := status.New(codes.ResourceExhausted, e.Error())
	withInfo, err := st.WithDetails(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(e.RetryAfter),
	})
	if err != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// RetryAfter extracts the retry delay from a rate-limited status error.
func RetryAfter(err error) (time.Duration, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.ResourceExhausted {
		return 0, false
	}
	for _, detail := range st.Details() {
		if info, isInfo := detail.(*errdetails.RetryInfo); isInfo && info.GetRetryDelay() != nil {
			return info.GetRetryDelay().AsDuration(), true
		}
	}
	return 0, false
}
