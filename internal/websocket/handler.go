package websocket

import (
	"bottarot-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection with the hub and pumps until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, clientID string, log logger.ILogger) {
	client := &Client{
		Hub:      hub,
		Conn:     c,
		UserID:   userID,
		ClientID: clientID,
		Send:     make(chan []byte, 64),
		logger:   log,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
