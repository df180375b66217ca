package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/appigle/gateway/internal/config"
	"github.com/appigle/gateway/internal/fallback"
	"github.com/appigle/gateway/internal/response"
)

func TestRequestIDGeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	var captured string
	r.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.NotEmpty(t, captured)
	_, err := uuid.Parse(captured)
	assert.NoError(t, err)
	assert.Equal(t, captured, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDReusesInboundID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	var captured string
	r.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	r.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", captured)
	assert.Equal(t, "client-supplied-id", rec.Header().Get(RequestIDHeader))
}

func TestLoggingLevelsByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "success logs info", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "client error logs warn", status: http.StatusUnauthorized, wantLevel: zapcore.WarnLevel},
		{name: "server error logs error", status: http.StatusBadGateway, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			core, logs := observer.New(zapcore.DebugLevel)

			r := gin.New()
			r.Use(RequestID(), Logging(zap.New(core)))
			r.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			assert.Equal(t, "request completed", entries[0].Message)

			fields := entries[0].ContextMap()
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "/test", fields["path"])
			assert.NotEmpty(t, fields["requestID"])
		})
	}
}

func TestLoggingSkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(LoggingWithConfig(LoggingConfig{
		Logger:    zap.New(core),
		SkipPaths: []string{"/health"},
	}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, logs.Len())
}

func TestRecoveryAnswersWithInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	responses := response.NewBuilder(config.ErrorsConfig{})

	r := gin.New()
	r.Use(Recovery(zap.New(core), responses))
	r.GET("/boom", func(c *gin.Context) {
		panic("something broke")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, response.CodeInternalServerError, resp.Code)
	assert.Empty(t, resp.Stacktrace, "stack traces stay out of the response body")

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestServiceFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/api/auth/login", want: "auth"},
		{path: "/api/users", want: "users"},
		{path: "/api/users/42/profile", want: "users"},
		{path: "/health", want: "health"},
		{path: "/api/", want: "default"},
		{path: "/", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceFromPath(tt.path))
		})
	}
}

func newBreakerRouter(t *testing.T, ctrl *fallback.Controller, failing *bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CircuitBreaker(CircuitBreakerConfig{
		Threshold: 3,
		Timeout:   time.Minute,
		Fallback:  ctrl,
		Responses: response.NewBuilder(config.ErrorsConfig{}),
		Logger:    zap.NewNop(),
	}))
	r.GET("/api/users/:id", func(c *gin.Context) {
		if *failing {
			c.Status(http.StatusBadGateway)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	ctrl := fallback.NewController(30*time.Second, zap.NewNop())
	failing := true
	r := newBreakerRouter(t, ctrl, &failing)

	// Failures pass through until the breaker trips.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	}

	// The open circuit now rejects without reaching the handler.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USERS_SERVICE_UNAVAILABLE", resp.Code)
	assert.Equal(t, 30, resp.RetryAfter)

	assert.Equal(t, int64(1), ctrl.Stats()["users"])
}

func TestCircuitBreakerSkipsExemptPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := fallback.NewController(30*time.Second, zap.NewNop())

	r := gin.New()
	r.Use(CircuitBreaker(CircuitBreakerConfig{
		Threshold: 3,
		Timeout:   time.Minute,
		Fallback:  ctrl,
		Responses: response.NewBuilder(config.ErrorsConfig{}),
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/fallback"},
	}))
	r.GET("/fallback/:service", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	// Far past the trip threshold the handler still answers directly: its
	// 503s are never counted and the breaker never rejects.
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fallback/auth", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Empty(t, rec.Body.String())
	}

	assert.Empty(t, ctrl.Stats())
}

func TestCircuitBreakerPassesHealthyTraffic(t *testing.T) {
	ctrl := fallback.NewController(30*time.Second, zap.NewNop())
	failing := false
	r := newBreakerRouter(t, ctrl, &failing)

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Empty(t, ctrl.Stats())
}
