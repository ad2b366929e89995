package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
)

type AuthHandler struct {
	sessions *session.Controller
	logger   zerolog.Logger
}

func NewAuthHandler(sessions *session.Controller, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

type loginBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	sess, err := h.sessions.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": sess.User})
}

type signupBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	sess, pending, err := h.sessions.Signup(c.Request.Context(), body.Email, body.Password, body.FullName)
	if err != nil {
		writeError(c, err)
		return
	}

	if sess == nil {
		c.JSON(http.StatusAccepted, gin.H{
			"success":        true,
			"message":        pending,
			"login_required": true,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": sess.User})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Logout()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Session(c *gin.Context) {
	state := h.sessions.State()
	sess := h.sessions.CurrentSession()

	resp := gin.H{
		"state":         state,
		"authenticated": state == domain.SessionStateAuthenticated,
	}
	if sess != nil {
		resp["user"] = sess.User
	}

	c.JSON(http.StatusOK, resp)
}
