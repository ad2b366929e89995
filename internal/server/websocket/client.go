package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1024
)

// ServeClient runs the read and write pumps for one connection. The read
// pump only consumes control frames; the dashboard stream is push-only.
func ServeClient(hub *Hub, conn *websocket.Conn, pingPeriod time.Duration, logger zerolog.Logger) {
	if pingPeriod == 0 {
		pingPeriod = (pongWait * 9) / 10
	}

	client := &Client{
		Conn: conn,
		Send: make(chan Message, 32),
	}
	hub.Register <- client

	go writePump(hub, client, pingPeriod, logger)
	go readPump(hub, client, logger)
}

func writePump(hub *Hub, client *Client, pingPeriod time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(message); err != nil {
				logger.Debug().Err(err).Msg("WebSocket write failed")
				hub.Unregister <- client
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				hub.Unregister <- client
				return
			}
		}
	}
}

func readPump(hub *Hub, client *Client, logger zerolog.Logger) {
	defer func() {
		hub.Unregister <- client
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}
