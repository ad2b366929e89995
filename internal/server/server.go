package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain/interfaces"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/reconcile"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/handlers"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/middleware"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/websocket"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

type Server struct {
	Sessions   *session.Controller
	Reconciler *reconcile.Reconciler
	Endpoints  interfaces.EndpointGateway
	Hub        *websocket.Hub
	Cfg        *config.Config
	Logger     zerolog.Logger
	Router     *gin.Engine
	httpServer *http.Server
}

func New(cfg *config.Config, sessions *session.Controller, reconciler *reconcile.Reconciler, endpoints interfaces.EndpointGateway, hub *websocket.Hub, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Sessions:   sessions,
		Reconciler: reconciler,
		Endpoints:  endpoints,
		Hub:        hub,
		Cfg:        cfg,
		Logger:     logger,
		Router:     router,
	}
}

func (s *Server) SetupRouter() {
	mw := middleware.NewMiddleware(s.Logger)
	mw.SetupMiddleware(s.Router)

	handler := handlers.New(
		s.Sessions,
		s.Reconciler,
		s.Endpoints,
		s.Hub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	go s.Hub.Run()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting dashboard server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	s.Reconciler.Close()

	s.Logger.Info().Msg("Server exited gracefully")
}
