package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/websocket"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	cfg      config.WebSocketConfig
	upgrader gorilla.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, cfg config.WebSocketConfig, logger zerolog.Logger) *WebSocketHandler {
	readBuffer := cfg.ReadBufferSize
	if readBuffer == 0 {
		readBuffer = 1024
	}
	writeBuffer := cfg.WriteBufferSize
	if writeBuffer == 0 {
		writeBuffer = 1024
	}

	return &WebSocketHandler{
		hub: hub,
		cfg: cfg,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				if !cfg.CheckOrigin {
					return true
				}
				// Local dashboard; only loopback origins are expected.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				host := u.Hostname()
				return host == "localhost" || host == "127.0.0.1"
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	websocket.ServeClient(h.hub, conn, h.cfg.PingPeriod, h.logger)
}
