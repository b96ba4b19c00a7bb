// Package auth provides bearer-token authentication for the chatbot gateway.
//
// # Tokens
//
// Clients authenticate with HS256 JWTs signed with auth.jwt_secret. The
// subject claim names the caller and is attached to the request context:
//
//	v, err := NewJWTVerifier([]byte(secret))
//	token, err := v.Generate("alice", 24*time.Hour)
//
// The "chatbot-gateway token" command issues tokens from the same secret.
//
// # Interceptors
//
// UnaryInterceptor and StreamInterceptor guard the gRPC server. The health
// and reflection services are exempt so load balancers and grpcurl work
// without credentials. HTTPMiddleware guards the session API on the HTTP
// server. With no secret configured every request runs as Anonymous.
package auth
