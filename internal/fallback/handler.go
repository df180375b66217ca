package fallback

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/appigle/gateway/internal/response"
)

const defaultServiceName = "default"

// Handler exposes the fallback and administrative endpoints.
type Handler struct {
	controller *Controller
	responses  *response.Builder
}

// NewHandler creates a Handler.
func NewHandler(controller *Controller, responses *response.Builder) *Handler {
	return &Handler{
		controller: controller,
		responses:  responses,
	}
}

// Register mounts the fallback endpoints: one per service name plus a default.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/fallback", h.handleDefault)
	r.GET("/fallback/:service", h.handleService)
}

// RegisterAdmin mounts the read-only statistics and reset endpoints.
func (h *Handler) RegisterAdmin(r gin.IRouter) {
	r.GET("/admin/fallback/stats", h.handleStats)
	r.POST("/admin/fallback/reset", h.handleReset)
}

func (h *Handler) handleDefault(c *gin.Context) {
	h.serveFallback(c, defaultServiceName)
}

func (h *Handler) handleService(c *gin.Context) {
	h.serveFallback(c, c.Param("service"))
}

func (h *Handler) serveFallback(c *gin.Context, service string) {
	retryAfter := h.controller.Trigger(service)
	seconds := int(retryAfter.Seconds())

	resp := h.responses.ServiceUnavailable(service, c.Request.URL.Path, seconds, traceID(c))
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusServiceUnavailable, resp)
}

func (h *Handler) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": h.controller.Stats()})
}

func (h *Handler) handleReset(c *gin.Context) {
	h.controller.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "fallback counters reset"})
}

func traceID(c *gin.Context) string {
	if id, exists := c.Get("requestID"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
