package handler

import (
	"context"
	"time"

	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/pkg/serverutils"
	internalWS "bottarot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SyncHandler upgrades signed-in tabs to a websocket that receives auth
// changes made in the user's other tabs and devices.
type SyncHandler struct {
	hub    *internalWS.Hub
	wait   time.Duration
	logger logger.ILogger
}

func NewSyncHandler(hub *internalWS.Hub, wait time.Duration, log logger.ILogger) *SyncHandler {
	return &SyncHandler{hub: hub, wait: wait, logger: log}
}

// ServeWs handles websocket requests from the peer. The client session
// cookie identifies the caller.
func (h *SyncHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	cs := serverutils.ClientSession(c)
	waitCtx, cancel := context.WithTimeout(c.UserContext(), h.wait)
	defer cancel()
	if err := cs.Auth.WaitInitialized(waitCtx); err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Session is still being restored")
	}
	user := cs.Auth.User()
	if user == nil {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "Not signed in")
	}

	userID, clientID := user.Id, cs.ID
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SyncHandler", "Starting sync session", map[string]interface{}{"user_id": userID, "client_id": clientID})
		internalWS.ServeWs(h.hub, conn, userID, clientID, h.logger)
		h.logger.Info("SyncHandler", "Sync session ended", map[string]interface{}{"user_id": userID, "client_id": clientID})
	})(c)
}

func (h *SyncHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
