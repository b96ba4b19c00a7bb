// ABOUTME: Shared parsing of "Authorization: Bearer <token>" values
// ABOUTME: Used by both the gRPC interceptor and the HTTP middleware

package auth

import (
	"errors"
	"strings"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errEmptyToken    = errors.New("empty token")
)

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errHeaderFormat
	}
	if strings.TrimSpace(token) == "" {
		return "", errEmptyToken
	}
	return token, nil
}
