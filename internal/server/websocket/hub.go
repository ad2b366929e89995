package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
)

type Message struct {
	Type    string                 `json:"type"`
	Deposit *domain.DepositAttempt `json:"deposit,omitempty"`
	Balance *domain.Balance        `json:"balance,omitempty"`
}

// Hub fans deposit-attempt and balance updates out to connected
// dashboard clients.
type Hub struct {
	Clients    map[*websocket.Conn]bool
	Broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	Logger     zerolog.Logger
}

type Client struct {
	Conn *websocket.Conn
	Send chan Message
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Broadcast:  make(chan Message, 100),
		Register:   make(chan *Client, 100),
		Unregister: make(chan *Client, 100),
		Logger:     logger,
	}
}

func (h *Hub) Run() {
	clients := make(map[*Client]bool)

	for {
		select {
		case client := <-h.Register:
			clients[client] = true
			h.Clients[client.Conn] = true
			h.Logger.Info().
				Int("connection_count", len(clients)).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if _, ok := clients[client]; ok {
				delete(clients, client)
				delete(h.Clients, client.Conn)
				close(client.Send)
				client.Conn.Close()
				h.Logger.Info().
					Int("connection_count", len(clients)).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			for client := range clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(clients, client)
					delete(h.Clients, client.Conn)
					close(client.Send)
					client.Conn.Close()
					h.Logger.Warn().Msg("Dropped slow WebSocket client")
				}
			}
		}
	}
}

// PublishDeposit implements the reconciler's publisher contract.
func (h *Hub) PublishDeposit(attempt domain.DepositAttempt) {
	select {
	case h.Broadcast <- Message{Type: "deposit", Deposit: &attempt}:
	default:
		h.Logger.Warn().Str("attempt_id", attempt.ID).Msg("WebSocket broadcast queue full, dropping deposit update")
	}
}

// PublishBalance implements the reconciler's publisher contract.
func (h *Hub) PublishBalance(balance domain.Balance) {
	select {
	case h.Broadcast <- Message{Type: "balance", Balance: &balance}:
	default:
		h.Logger.Warn().Msg("WebSocket broadcast queue full, dropping balance update")
	}
}
