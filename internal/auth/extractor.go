package auth

import (
	"errors"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Extraction errors. Both fail fast at the pipeline boundary; the validator
// is never invoked for them.
var (
	// ErrMissingAuthHeader indicates that no Authorization header is present.
	ErrMissingAuthHeader = errors.New("authorization header is missing")

	// ErrInvalidAuthHeader indicates that the Authorization header is not a
	// bearer scheme or carries no token.
	ErrInvalidAuthHeader = errors.New("authorization header is not a valid bearer scheme")
)

// ExtractBearerToken pulls the raw bearer token from the request.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrInvalidAuthHeader
	}
	return token, nil
}
