package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

type settingsStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateSettings(ctx context.Context, userID int64, input repository.UpdateSettingsInput) (*models.User, error)
}

type SettingsHandler struct {
	userRepo settingsStore
}

func NewSettingsHandler(userRepo *repository.UserRepository) *SettingsHandler {
	return &SettingsHandler{userRepo: userRepo}
}

type updateSettingsRequest struct {
	FullName       *string  `json:"full_name" validate:"omitempty,min=1,max=120"`
	UnitPreference *string  `json:"unit_preference" validate:"omitempty,oneof=lbs kg"`
	HeightInches   *float64 `json:"height_inches" validate:"omitempty,gt=0"`
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	user, err := h.userRepo.GetByID(c.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to lookup user"})
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "full_name must not be empty"})
	}

	user, err := h.userRepo.UpdateSettings(c.Context(), principal.ID, repository.UpdateSettingsInput{
		FullName:       req.FullName,
		UnitPreference: req.UnitPreference,
		HeightInches:   req.HeightInches,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update settings"})
	}
	return c.JSON(fiber.Map{"user": user})
}
