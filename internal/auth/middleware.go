package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/auth/jwt"
	"github.com/appigle/gateway/internal/response"
)

// ClaimsKey is the gin context key under which validated claims are exposed
// to downstream handlers.
const ClaimsKey = "authClaims"

const (
	wwwAuthenticateBearer       = "Bearer"
	wwwAuthenticateInvalidToken = `Bearer error="invalid_token"`
)

// MiddlewareConfig wires the pipeline middleware dependencies.
type MiddlewareConfig struct {
	Validator  jwt.Validator
	Classifier *Classifier
	Rewriter   *HeaderRewriter
	Responses  *response.Builder
	Logger     *zap.Logger
}

// Middleware returns the request pipeline: classify the path, extract the
// bearer token, validate it, and rewrite identity headers, or reject with a
// structured 401.
func Middleware(cfg MiddlewareConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if cfg.Classifier.IsPublic(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := ExtractBearerToken(c.Request)
		if err != nil {
			// Missing or malformed headers fail fast; the validator is
			// never invoked.
			rejectMissingHeader(c, cfg.Responses, err)
			return
		}

		claims, err := cfg.Validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token validation failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			rejectInvalidToken(c, cfg.Responses, err)
			return
		}

		cfg.Rewriter.Rewrite(c.Request, claims)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func rejectMissingHeader(c *gin.Context, responses *response.Builder, err error) {
	code := response.CodeTokenMissing
	message := "Authentication token is missing."
	if errors.Is(err, ErrInvalidAuthHeader) {
		code = response.CodeInvalidAuthHeader
		message = "The Authorization header is not a valid bearer scheme."
	}

	c.Header("WWW-Authenticate", wwwAuthenticateBearer)
	resp := responses.Unauthorized(code, message, c.Request.URL.Path, requestID(c))
	c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
}

func rejectInvalidToken(c *gin.Context, responses *response.Builder, err error) {
	c.Header("WWW-Authenticate", wwwAuthenticateInvalidToken)
	resp := responses.FromAuthError(err, c.Request.URL.Path, requestID(c))
	c.AbortWithStatusJSON(resp.Status, resp)
}

// ClaimsFromContext returns the validated claims stored by the middleware.
func ClaimsFromContext(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func requestID(c *gin.Context) string {
	if id, exists := c.Get("requestID"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
