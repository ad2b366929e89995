package main

import (
	"context"
	"time"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/chain/ethrpc"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/gateway/authgw"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/gateway/endpointgw"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/gateway/ledgergw"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/reconcile"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/websocket"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/logger"
)

func main() {
	log := logger.Default("paydash")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.New(logger.Config{
		Service:    "paydash",
		Level:      cfg.Logger.Level,
		TimeFormat: cfg.Logger.TimeFormat,
		Pretty:     cfg.Logger.Pretty,
	})

	authClient := authgw.New(cfg.Platform, log)
	ledgerClient := ledgergw.New(cfg.Platform, cfg.Reconciler, log)
	endpointClient := endpointgw.New(cfg.Platform, log)
	chainClient := ethrpc.New(cfg.Chain, log)

	store := session.NewFileStore(cfg.Session.StateDir, log)
	sessions := session.NewController(authClient, store, cfg.Session.RefreshSkew, log)

	hub := websocket.NewHub(log)
	reconciler := reconcile.New(ledgerClient, chainClient, sessions, hub, log)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sessions.Initialize(initCtx); err != nil {
		log.Warn().Err(err).Msg("Session initialization failed, starting unauthenticated")
	}
	cancel()

	srv := server.New(cfg, sessions, reconciler, endpointClient, hub, log)
	srv.Start()
}
