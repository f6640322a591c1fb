package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"showcase/internal/middleware"
	"showcase/internal/models"
	"showcase/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	wsTicketTTL    = 30 * time.Second
	wsTicketPrefix = "ws_ticket:"
)

// AuthRequired resolves the caller from a bearer token, or from a single-use
// websocket ticket on /api/ws, and stores userID and role in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.authenticate(c)
		if err != nil {
			return respondError(c, err)
		}

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return respondError(c, models.NewUnauthorizedError("Unknown user"))
			}
			return respondError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("role", user.Role)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
		return c.Next()
	}
}

func (s *Server) authenticate(c *fiber.Ctx) (uint, error) {
	isWSPath := strings.HasPrefix(c.Path(), "/api/ws")

	if ticket := c.Query("ticket"); ticket != "" && isWSPath {
		userID, ok := s.redeemWSTicket(c.UserContext(), ticket)
		if !ok {
			return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
		}
		return userID, nil
	}

	token, err := middleware.BearerToken(c)
	if err != nil {
		return 0, models.NewUnauthorizedError(err.Error())
	}
	userID, err := middleware.ParseUserID(s.config.JWTSecret, token)
	if err != nil {
		return 0, models.NewUnauthorizedError(err.Error())
	}
	return userID, nil
}

func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that role is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actorFrom(c).IsAdmin() {
			return respondError(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// actorFrom builds the service actor from locals set by AuthRequired.
// Unauthenticated requests yield the zero Actor.
func actorFrom(c *fiber.Ctx) service.Actor {
	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(models.UserRole)
	return service.Actor{ID: userID, Role: role}
}

// GetMe handles GET /api/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), actorFrom(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on a
// websocket upgrade, so they trade their bearer token for a short-lived ticket.
// @Summary Issue websocket ticket
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Notifications are unavailable",
		})
	}

	ticket := uuid.NewString()
	userID := actorFrom(c).ID
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket,
		strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
