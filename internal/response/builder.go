// Package response converts internal failure kinds into the stable JSON wire
// format returned to clients.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/appigle/gateway/internal/auth/jwt"
	"github.com/appigle/gateway/internal/config"
)

// Application error codes.
const (
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeInvalidAuthHeader   = "INVALID_AUTH_HEADER"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenRevoked        = "TOKEN_REVOKED"
	CodeInvalidTokenType    = "INVALID_TOKEN_TYPE"
	CodeInvalidClaims       = "INVALID_CLAIMS"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// ErrorResponse is the wire shape for every client-visible failure.
type ErrorResponse struct {
	Timestamp        string            `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Code             string            `json:"code"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	RetryAfter       int               `json:"retryAfter,omitempty"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
	TraceID          string            `json:"traceId,omitempty"`
	SupportContact   string            `json:"supportContact,omitempty"`
	Exception        string            `json:"exception,omitempty"`
	Stacktrace       string            `json:"stacktrace,omitempty"`
}

// Builder constructs error responses according to the error configuration.
type Builder struct {
	cfg config.ErrorsConfig
	now func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the timestamp clock.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a response builder.
func NewBuilder(cfg config.ErrorsConfig, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) base(status int, code, label, message, path, traceID string) *ErrorResponse {
	resp := &ErrorResponse{
		Timestamp: b.now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     label,
		Code:      code,
		Message:   message,
		Path:      path,
	}
	if b.cfg.IncludeTraceID && traceID != "" {
		resp.TraceID = traceID
	}
	if b.cfg.IncludeSupportContact {
		resp.SupportContact = b.cfg.SupportContact
	}
	return resp
}

// Unauthorized builds a 401 response with the given code and message.
func (b *Builder) Unauthorized(code, message, path, traceID string) *ErrorResponse {
	return b.base(http.StatusUnauthorized, code, "Authentication Failed", message, path, traceID)
}

// FromAuthError maps a classified token validation error to its wire shape.
func (b *Builder) FromAuthError(err error, path, traceID string) *ErrorResponse {
	switch {
	case errors.Is(err, jwt.ErrEmptyToken):
		return b.Unauthorized(CodeTokenMissing, "Authentication token is missing.", path, traceID)
	case errors.Is(err, jwt.ErrTokenExpired):
		return b.base(http.StatusUnauthorized, CodeTokenExpired, "Token Expired",
			"Your session has expired. Please sign in again.", path, traceID)
	case errors.Is(err, jwt.ErrTokenRevoked), errors.Is(err, jwt.ErrRevocationUnavailable):
		// Fail-closed revocation errors are treated as revocations.
		return b.base(http.StatusUnauthorized, CodeTokenRevoked, "Token Revoked",
			"The token is no longer accepted.", path, traceID)
	case errors.Is(err, jwt.ErrInvalidTokenType):
		return b.Unauthorized(CodeInvalidTokenType, "The token type is not accepted for this request.", path, traceID)
	case errors.Is(err, jwt.ErrInvalidClaims):
		return b.Unauthorized(CodeInvalidClaims, "The token claims are incomplete or invalid.", path, traceID)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrInvalidSignature),
		errors.Is(err, jwt.ErrUnsupportedFormat),
		errors.Is(err, jwt.ErrClaimMismatch):
		return b.base(http.StatusUnauthorized, CodeInvalidToken, "Invalid Token",
			"The authentication token is invalid or malformed.", path, traceID)
	default:
		return b.InternalServerError(path, traceID, err)
	}
}

// ServiceUnavailable builds the 503 fallback response with a retry hint.
func (b *Builder) ServiceUnavailable(service, path string, retryAfterSeconds int, traceID string) *ErrorResponse {
	code := strings.ToUpper(service) + "_SERVICE_UNAVAILABLE"
	message := fmt.Sprintf("The %s service is temporarily unavailable. Please try again later.", service)
	resp := b.base(http.StatusServiceUnavailable, code, "Service Unavailable", message, path, traceID)
	resp.RetryAfter = retryAfterSeconds
	return resp
}

// ValidationFailed builds a 400 response with per-field details.
func (b *Builder) ValidationFailed(code, message, path string, validationErrors map[string]string) *ErrorResponse {
	resp := b.base(http.StatusBadRequest, code, "Validation Failed", message, path, "")
	resp.ValidationErrors = validationErrors
	return resp
}

// InternalServerError builds a 500 response. The underlying error is only
// exposed when stack traces are explicitly enabled; the default configuration
// never leaks internal detail.
func (b *Builder) InternalServerError(path, traceID string, err error) *ErrorResponse {
	resp := b.base(http.StatusInternalServerError, CodeInternalServerError, "Internal Server Error",
		"An internal error occurred. Please try again later.", path, traceID)
	if b.cfg.IncludeStackTrace && err != nil {
		resp.Exception = err.Error()
		resp.Stacktrace = string(debug.Stack())
	}
	return resp
}
