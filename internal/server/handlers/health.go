package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
)

type HealthHandler struct {
	sessions *session.Controller
}

func NewHealthHandler(sessions *session.Controller) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 until session initialization has settled.
func (h *HealthHandler) Ready(c *gin.Context) {
	state := h.sessions.State()
	if state == domain.SessionStateInitializing {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "session_state": state})
}
