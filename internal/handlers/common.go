package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/middleware"
	"github.com/velolift/VeloLiftBack/internal/models"
)

var validate = validator.New()

var errNoPrincipal = errors.New("no principal in request context")

// principalFromCtx reads the principal stashed by the middleware chain.
func principalFromCtx(c *fiber.Ctx) (models.Principal, error) {
	principal, ok := c.Locals(middleware.PrincipalKey).(models.Principal)
	if !ok {
		return models.Principal{}, errNoPrincipal
	}
	return principal, nil
}

// parseAuthUserID reads the raw token subject for routes that run before
// the principal loader.
func parseAuthUserID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, errNoPrincipal
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
