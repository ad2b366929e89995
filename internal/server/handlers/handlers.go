package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain/interfaces"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/reconcile"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/websocket"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

type Handlers struct {
	Sessions   *session.Controller
	Reconciler *reconcile.Reconciler
	Endpoints  interfaces.EndpointGateway
	Hub        *websocket.Hub
	Logger     zerolog.Logger
	Config     *config.Config
}

func New(sessions *session.Controller, reconciler *reconcile.Reconciler, endpoints interfaces.EndpointGateway, hub *websocket.Hub, logger zerolog.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		Sessions:   sessions,
		Reconciler: reconciler,
		Endpoints:  endpoints,
		Hub:        hub,
		Logger:     logger,
		Config:     cfg,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	healthHandler := NewHealthHandler(h.Sessions)
	authHandler := NewAuthHandler(h.Sessions, h.Logger)
	walletHandler := NewWalletHandler(h.Reconciler, h.Logger)
	endpointHandler := NewEndpointHandler(h.Sessions, h.Endpoints, h.Logger)
	wsHandler := NewWebSocketHandler(h.Hub, h.Config.WebSocket, h.Logger)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	router.GET("/ws", wsHandler.HandleConnection)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/session", authHandler.Session)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.Balance)
			wallet.GET("/deposits", walletHandler.ListDeposits)
			wallet.POST("/deposits", walletHandler.SubmitDeposit)
			wallet.GET("/deposits/:id", walletHandler.GetDeposit)
			wallet.POST("/deposits/resume", walletHandler.ResumeDeposit)
			wallet.POST("/deposits/manual", walletHandler.ManualDeposit)
		}

		endpoints := api.Group("/endpoints")
		{
			endpoints.GET("", endpointHandler.ListMine)
			endpoints.POST("", endpointHandler.Create)
			endpoints.PUT("/:id", endpointHandler.Update)
			endpoints.DELETE("/:id", endpointHandler.Delete)
		}

		api.GET("/marketplace", endpointHandler.Marketplace)
	}
}

// writeError maps the error taxonomy to HTTP status codes for the local
// dashboard UI.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, domain.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
	case domain.IsAuthError(err):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
	case domain.IsTransient(err):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	}
}
