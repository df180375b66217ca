package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/fallback"
	"github.com/appigle/gateway/internal/response"
)

const defaultBreakerThreshold = 5

// CircuitBreakerConfig holds configuration for the circuit breaker middleware.
type CircuitBreakerConfig struct {
	// Threshold is the minimum request count before the failure ratio can
	// trip the breaker.
	Threshold int

	// Timeout is how long an open circuit stays open before probing.
	Timeout time.Duration

	// Fallback records activations and supplies the retry-after hint.
	Fallback *fallback.Controller

	// Responses builds the 503 body served while the circuit is open.
	Responses *response.Builder

	Logger *zap.Logger

	// NameFunc extracts the breaker name from the request. Defaults to the
	// service segment of the path.
	NameFunc func(*gin.Context) string

	// SkipPaths lists paths (and their subtrees) exempt from the breaker.
	// The gateway's own endpoints go here: a fallback handler's 503 is the
	// degraded answer, not a downstream failure.
	SkipPaths []string
}

// skipMatcher reports whether a path equals one of the configured prefixes or
// sits under one of them.
type skipMatcher []string

func (m skipMatcher) matches(path string) bool {
	for _, p := range m {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// serverError marks a 5xx handler response as a breaker failure.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.status)
}

// ServiceFromPath derives the breaker name from a request path: the first
// segment after /api/, or the first path segment, or "default".
func ServiceFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return "default"
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "default"
	}
	return trimmed
}

// CircuitBreaker returns a middleware that runs each request through a
// per-service gobreaker instance. A 5xx response counts as a failure; once
// the circuit opens, requests are rejected with the fallback 503 and the
// escalating Retry-After hint.
func CircuitBreaker(config CircuitBreakerConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Threshold <= 0 {
		config.Threshold = defaultBreakerThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	nameFunc := config.NameFunc
	if nameFunc == nil {
		nameFunc = func(c *gin.Context) string {
			return ServiceFromPath(c.Request.URL.Path)
		}
	}
	skip := skipMatcher(config.SkipPaths)

	var breakers sync.Map // service name -> *gobreaker.CircuitBreaker

	breakerFor := func(name string) *gobreaker.CircuitBreaker {
		if v, ok := breakers.Load(name); ok {
			return v.(*gobreaker.CircuitBreaker)
		}

		threshold := uint32(config.Threshold)
		cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: config.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= threshold && failureRatio >= 0.5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				config.Logger.Info("circuit breaker state change",
					zap.String("service", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})

		v, _ := breakers.LoadOrStore(name, cb)
		return v.(*gobreaker.CircuitBreaker)
	}

	return func(c *gin.Context) {
		if skip.matches(c.Request.URL.Path) {
			c.Next()
			return
		}

		name := nameFunc(c)
		cb := breakerFor(name)

		_, err := cb.Execute(func() (interface{}, error) {
			c.Next()
			if status := c.Writer.Status(); status >= 500 {
				return nil, &serverError{status: status}
			}
			return nil, nil
		})
		if err == nil {
			return
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			retryAfter := config.Fallback.Trigger(name)
			seconds := int(retryAfter.Seconds())

			config.Logger.Warn("circuit breaker rejected request",
				zap.String("service", name),
				zap.String("path", c.Request.URL.Path),
				zap.Int("retryAfter", seconds),
			)

			resp := config.Responses.ServiceUnavailable(name, c.Request.URL.Path, seconds, GetRequestID(c))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp)
		}
		// A serverError means the handler already wrote its response.
	}
}
