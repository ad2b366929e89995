package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain/interfaces"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
)

// EndpointHandler passes endpoint CRUD and marketplace browsing through
// to the platform, attaching a valid access token per request.
type EndpointHandler struct {
	sessions  *session.Controller
	endpoints interfaces.EndpointGateway
	logger    zerolog.Logger
}

func NewEndpointHandler(sessions *session.Controller, endpoints interfaces.EndpointGateway, logger zerolog.Logger) *EndpointHandler {
	return &EndpointHandler{sessions: sessions, endpoints: endpoints, logger: logger}
}

func (h *EndpointHandler) ListMine(c *gin.Context) {
	token, err := h.sessions.EnsureValidSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response, err := h.endpoints.ListMine(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *EndpointHandler) Marketplace(c *gin.Context) {
	token, err := h.sessions.EnsureValidSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response, err := h.endpoints.Marketplace(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *EndpointHandler) Create(c *gin.Context) {
	var endpoint domain.Endpoint
	if err := c.ShouldBindJSON(&endpoint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	token, err := h.sessions.EnsureValidSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	created, err := h.endpoints.Create(c.Request.Context(), token, &endpoint)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "endpoint": created})
}

func (h *EndpointHandler) Update(c *gin.Context) {
	var updates domain.Endpoint
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	token, err := h.sessions.EnsureValidSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.endpoints.Update(c.Request.Context(), token, c.Param("id"), &updates)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "endpoint": updated})
}

func (h *EndpointHandler) Delete(c *gin.Context) {
	token, err := h.sessions.EnsureValidSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.endpoints.Delete(c.Request.Context(), token, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
