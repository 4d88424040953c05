package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/velolift/VeloLiftBack/internal/models"
)

// UserLoader resolves the authenticated account so gating decisions use
// current flags rather than whatever the token carried at issue time.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// PrincipalKey is the Locals key the loaded principal is stored under.
const PrincipalKey = "principal"

// LoadPrincipal fetches the authenticated user and stashes a Principal in
// Locals for downstream handlers. Must run after AuthRequired.
func LoadPrincipal(users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		user, err := users.GetByID(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(PrincipalKey, user.Principal())
		return c.Next()
	}
}

// RequireSubscriber gates routes behind an active subscription. Coaches
// always pass.
func RequireSubscriber() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(PrincipalKey).(models.Principal)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if !principal.Subscribed && !principal.IsCoach {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Active subscription required",
			})
		}
		return c.Next()
	}
}

// RequireCoach gates coach-only routes.
func RequireCoach() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(PrincipalKey).(models.Principal)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if !principal.IsCoach {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Coach access required",
			})
		}
		return c.Next()
	}
}
