// ABOUTME: HTTP middleware requiring a bearer token on the session API
// ABOUTME: Mirrors the gRPC interceptor so both surfaces accept the same tokens

package auth

import (
	"net/http"
)

// HTTPMiddleware rejects requests without a valid bearer token. A nil
// verifier disables the check.
func HTTPMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), Anonymous)))
			})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			subject, err := tokens.Verify(token)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), Caller{Subject: subject})))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
