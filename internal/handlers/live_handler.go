package handlers

import (
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/middleware"
	livews "github.com/velolift/VeloLiftBack/internal/websocket"
	"github.com/velolift/VeloLiftBack/pkg/utils"
)

// LiveHandler upgrades clients onto the live workout feed.
type LiveHandler struct {
	hub       *livews.Hub
	users     middleware.UserLoader
	jwtSecret string
}

func NewLiveHandler(hub *livews.Hub, users middleware.UserLoader, jwtSecret string) *LiveHandler {
	return &LiveHandler{hub: hub, users: users, jwtSecret: jwtSecret}
}

// WebSocketAuth authenticates the dial and applies the same subscriber
// gate as the rest of the tracker: the feed is part of the tracker
// surface, so a lapsed athlete cannot hold a connection.
func (h *LiveHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	user, err := h.users.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	if !user.Subscribed && !user.IsCoach {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Active subscription required"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *LiveHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := livews.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

// Browsers cannot set headers on a websocket dial, so the token may
// arrive as a query parameter instead.
func (h *LiveHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if rest, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			tokenString = rest
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
