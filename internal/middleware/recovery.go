package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/response"
)

// Recovery returns a middleware that recovers from handler panics and answers
// with the standard 500 body. The stack trace goes to the log, never to the
// client.
func Recovery(logger *zap.Logger, responses *response.Builder) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("requestID", GetRequestID(c)),
					zap.ByteString("stack", debug.Stack()),
				)

				resp := responses.InternalServerError(c.Request.URL.Path, GetRequestID(c), nil)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()
	}
}
