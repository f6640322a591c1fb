package server

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /api/ws. The connection only receives
// notifications: moderation outcomes for the user's projects, new reviews on
// them and announcements of newly published projects.
// @Summary Notification stream
// @Tags notifications
// @Security BearerAuth
// @Param ticket query string false "Ticket from POST /ws/ticket"
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			slog.Warn("websocket register failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()))
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, payload)
			_ = conn.Close()
			return
		}

		if hello, err := json.Marshal(map[string]any{"type": "connected", "user_id": userID}); err == nil {
			client.TrySend(hello)
		}

		// the connection returns to fiber's pool once this handler exits
		done := make(chan struct{})
		go func() {
			client.WritePump()
			close(done)
		}()
		client.ReadPump()
		<-done
	})

	return func(c *fiber.Ctx) error {
		if s.hub == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Notifications are unavailable",
			})
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
