package blacklist

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/config"
	"github.com/appigle/gateway/internal/response"
)

// AdminHandler exposes the revocation insert contract over HTTP.
type AdminHandler struct {
	store      Store
	defaultTTL time.Duration
	responses  *response.Builder
	logger     *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(store Store, defaultTTL time.Duration, responses *response.Builder, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		store:      store,
		defaultTTL: defaultTTL,
		responses:  responses,
		logger:     logger,
	}
}

// Register mounts the revocation endpoint.
func (h *AdminHandler) Register(r gin.IRouter) {
	r.POST("/admin/tokens/revoke", h.handleRevoke)
}

type revokeRequest struct {
	Token string          `json:"token" binding:"required"`
	TTL   config.Duration `json:"ttl"`
}

func (h *AdminHandler) handleRevoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := h.responses.ValidationFailed("VALIDATION_FAILED", "Request validation failed.",
			c.Request.URL.Path, map[string]string{"token": "token is required"})
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	ttl := req.TTL.Duration()
	if ttl <= 0 {
		ttl = h.defaultTTL
	}

	if err := h.store.Revoke(c.Request.Context(), req.Token, ttl); err != nil {
		h.logger.Error("token revocation failed", zap.Error(err))
		resp := h.responses.InternalServerError(c.Request.URL.Path, requestID(c), err)
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	h.logger.Info("token revoked", zap.Duration("ttl", ttl))
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func requestID(c *gin.Context) string {
	if id, exists := c.Get("requestID"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
