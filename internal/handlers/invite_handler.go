package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/services"
)

type inviteApplicationService interface {
	CreateInvite(ctx context.Context, principal models.Principal, email string) (*models.CoachInvite, error)
	ListInvites(ctx context.Context, principal models.Principal) ([]models.CoachInvite, error)
	DeleteInvite(ctx context.Context, principal models.Principal, inviteID int64) error
	GetInviteLanding(ctx context.Context, token string) (*services.InviteLanding, error)
	RedeemInvite(ctx context.Context, principal models.Principal, token string) (*models.CoachInvite, error)
	ListAthletes(ctx context.Context, principal models.Principal) ([]models.User, error)
	UnlinkAthlete(ctx context.Context, principal models.Principal, athleteID int64) error
}

type InviteHandler struct {
	service inviteApplicationService
}

func NewInviteHandler(service *services.InviteService) *InviteHandler {
	return &InviteHandler{service: service}
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type redeemInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *InviteHandler) CreateInvite(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	invite, err := h.service.CreateInvite(c.Context(), principal, req.Email)
	if err != nil {
		return mapInviteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invite": invite})
}

func (h *InviteHandler) ListInvites(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	invites, err := h.service.ListInvites(c.Context(), principal)
	if err != nil {
		return mapInviteError(c, err)
	}
	return c.JSON(fiber.Map{"invites": invites})
}

func (h *InviteHandler) DeleteInvite(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	inviteID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid invite id"})
	}

	if err := h.service.DeleteInvite(c.Context(), principal, inviteID); err != nil {
		return mapInviteError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetInviteLanding serves the unauthenticated invite landing page data.
func (h *InviteHandler) GetInviteLanding(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid invite token"})
	}

	landing, err := h.service.GetInviteLanding(c.Context(), token)
	if err != nil {
		return mapInviteError(c, err)
	}
	return c.JSON(fiber.Map{"invite": landing})
}

func (h *InviteHandler) RedeemInvite(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req redeemInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	invite, err := h.service.RedeemInvite(c.Context(), principal, strings.TrimSpace(req.Token))
	if err != nil {
		return mapInviteError(c, err)
	}
	return c.JSON(fiber.Map{"invite": invite})
}

func (h *InviteHandler) ListAthletes(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	athletes, err := h.service.ListAthletes(c.Context(), principal)
	if err != nil {
		return mapInviteError(c, err)
	}
	return c.JSON(fiber.Map{"athletes": athletes})
}

func (h *InviteHandler) UnlinkAthlete(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	athleteID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid athlete id"})
	}

	if err := h.service.UnlinkAthlete(c.Context(), principal, athleteID); err != nil {
		return mapInviteError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapInviteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInviteInvalid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Invite cannot be redeemed"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invite not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process invite request"})
	}
}
