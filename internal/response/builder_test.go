package response

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appigle/gateway/internal/auth/jwt"
	"github.com/appigle/gateway/internal/config"
)

func testErrorsConfig() config.ErrorsConfig {
	return config.ErrorsConfig{
		IncludeTraceID:        true,
		IncludeSupportContact: true,
		SupportContact:        "support@appigle.com",
		IncludeStackTrace:     false,
	}
}

func TestBuilderBaseFields(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	b := NewBuilder(testErrorsConfig(), WithClock(func() time.Time { return now }))

	resp := b.Unauthorized(CodeTokenMissing, "Authentication token is missing.", "/api/users", "trace-1")

	assert.Equal(t, "2026-03-14T09:26:53Z", resp.Timestamp)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Authentication Failed", resp.Error)
	assert.Equal(t, CodeTokenMissing, resp.Code)
	assert.Equal(t, "/api/users", resp.Path)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, "support@appigle.com", resp.SupportContact)
	assert.Empty(t, resp.Stacktrace)
}

func TestBuilderOptionalFieldsDisabled(t *testing.T) {
	cfg := testErrorsConfig()
	cfg.IncludeTraceID = false
	cfg.IncludeSupportContact = false
	b := NewBuilder(cfg)

	resp := b.Unauthorized(CodeInvalidToken, "bad", "/p", "trace-1")
	assert.Empty(t, resp.TraceID)
	assert.Empty(t, resp.SupportContact)
}

func TestFromAuthErrorMapping(t *testing.T) {
	b := NewBuilder(testErrorsConfig())

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "empty token", err: jwt.NewValidationError("blank", jwt.ErrEmptyToken), wantStatus: 401, wantCode: CodeTokenMissing},
		{name: "malformed", err: jwt.NewValidationError("bad", jwt.ErrTokenMalformed), wantStatus: 401, wantCode: CodeInvalidToken},
		{name: "bad signature", err: jwt.NewValidationError("bad", jwt.ErrInvalidSignature), wantStatus: 401, wantCode: CodeInvalidToken},
		{name: "unsupported format", err: jwt.NewValidationError("bad", jwt.ErrUnsupportedFormat), wantStatus: 401, wantCode: CodeInvalidToken},
		{name: "claim mismatch", err: jwt.NewValidationError("bad", jwt.ErrClaimMismatch), wantStatus: 401, wantCode: CodeInvalidToken},
		{name: "expired", err: jwt.NewValidationError("old", jwt.ErrTokenExpired), wantStatus: 401, wantCode: CodeTokenExpired},
		{name: "revoked", err: jwt.NewValidationError("gone", jwt.ErrTokenRevoked), wantStatus: 401, wantCode: CodeTokenRevoked},
		{name: "revocation unavailable fail-closed", err: jwt.NewValidationError("down", jwt.ErrRevocationUnavailable), wantStatus: 401, wantCode: CodeTokenRevoked},
		{name: "invalid token type", err: jwt.NewValidationError("type", jwt.ErrInvalidTokenType), wantStatus: 401, wantCode: CodeInvalidTokenType},
		{name: "invalid claims", err: jwt.NewValidationError("claims", jwt.ErrInvalidClaims), wantStatus: 401, wantCode: CodeInvalidClaims},
		{name: "unclassified", err: assert.AnError, wantStatus: 500, wantCode: CodeInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := b.FromAuthError(tt.err, "/api/things", "")
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, "/api/things", resp.Path)
		})
	}
}

func TestServiceUnavailable(t *testing.T) {
	b := NewBuilder(testErrorsConfig())

	resp := b.ServiceUnavailable("auth", "/api/auth/login", 60, "trace-2")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "AUTH_SERVICE_UNAVAILABLE", resp.Code)
	assert.Equal(t, "Service Unavailable", resp.Error)
	assert.Equal(t, 60, resp.RetryAfter)
	assert.Contains(t, resp.Message, "auth")
}

func TestValidationFailed(t *testing.T) {
	b := NewBuilder(testErrorsConfig())

	resp := b.ValidationFailed("REQUEST_INVALID", "invalid request", "/api/things", map[string]string{
		"name": "must not be empty",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "must not be empty", resp.ValidationErrors["name"])
}

func TestInternalServerErrorStackTraceGating(t *testing.T) {
	plain := NewBuilder(testErrorsConfig())
	resp := plain.InternalServerError("/p", "", assert.AnError)
	assert.Empty(t, resp.Stacktrace)
	assert.Empty(t, resp.Exception)

	cfg := testErrorsConfig()
	cfg.IncludeStackTrace = true
	verbose := NewBuilder(cfg)
	resp = verbose.InternalServerError("/p", "", assert.AnError)
	require.NotEmpty(t, resp.Exception)
	assert.NotEmpty(t, resp.Stacktrace)
}
