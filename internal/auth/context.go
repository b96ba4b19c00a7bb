// ABOUTME: Caller identity carried through request contexts
// ABOUTME: Set by the gRPC interceptor and HTTP middleware, read by handlers for logging

package auth

import "context"

// Caller is the authenticated identity of a request.
type Caller struct {
	Subject string
}

// Anonymous is the caller used when authentication is disabled.
var Anonymous = Caller{Subject: "anonymous"}

type callerKey struct{}

// WithCaller attaches c to ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller stored in ctx.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
