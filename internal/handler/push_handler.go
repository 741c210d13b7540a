package handler

import (
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"
	internalWS "linkstride-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// PushHandler upgrades UI connections onto the session event hub.
type PushHandler struct {
	sessions service.ISessionService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewPushHandler(sessions service.ISessionService, hub *internalWS.Hub, log logger.ILogger) *PushHandler {
	return &PushHandler{
		sessions: sessions,
		hub:      hub,
		logger:   log,
	}
}

func (h *PushHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
	r.Get("/ws/status", h.Status)
}

// ServeWs binds the socket to whoever holds the gateway session right now.
func (h *PushHandler) ServeWs(c *fiber.Ctx) error {
	user, err := h.sessions.CurrentUser(c.UserContext())
	if err != nil {
		return err
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Not signed in"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID := user.Id
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("PushHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("PushHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

func (h *PushHandler) Status(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Push status", fiber.Map{
		"connections": h.hub.Count(),
	}))
}
