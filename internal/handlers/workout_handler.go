package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/services"
)

type workoutApplicationService interface {
	StartWorkout(ctx context.Context, principal models.Principal, notes *string) (*models.Workout, error)
	ListWorkouts(ctx context.Context, principal models.Principal) ([]models.Workout, error)
	ListAthleteWorkouts(ctx context.Context, principal models.Principal, athleteID int64) ([]models.Workout, error)
	GetWorkout(ctx context.Context, principal models.Principal, workoutID int64) (*models.WorkoutDetail, error)
	CompleteWorkout(ctx context.Context, principal models.Principal, workoutID int64) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, principal models.Principal, workoutID int64) error
	AddSet(ctx context.Context, principal models.Principal, workoutID int64, input services.AddSetInput) (*models.Set, error)
	DeleteSet(ctx context.Context, principal models.Principal, setID int64) error
	AddRep(ctx context.Context, principal models.Principal, setID int64, input services.AddRepInput) (*models.Rep, error)
	DeleteRep(ctx context.Context, principal models.Principal, repID int64) error
}

type WorkoutHandler struct {
	service workoutApplicationService
}

func NewWorkoutHandler(service *services.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{service: service}
}

type startWorkoutRequest struct {
	Notes *string `json:"notes"`
}

type addSetRequest struct {
	Exercise string   `json:"exercise" validate:"required,min=1,max=120"`
	Weight   *float64 `json:"weight" validate:"omitempty,gte=0"`
}

type addRepRequest struct {
	Depth       *float64 `json:"depth" validate:"omitempty,gte=0"`
	TimeSeconds *float64 `json:"time_seconds" validate:"omitempty,gt=0"`
	Velocity    *float64 `json:"velocity" validate:"omitempty,gte=0"`
}

func (h *WorkoutHandler) StartWorkout(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req startWorkoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	workout, err := h.service.StartWorkout(c.Context(), principal, req.Notes)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workout": workout})
}

func (h *WorkoutHandler) ListWorkouts(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	workouts, err := h.service.ListWorkouts(c.Context(), principal)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workouts": workouts})
}

func (h *WorkoutHandler) ListAthleteWorkouts(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	athleteID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid athlete id"})
	}

	workouts, err := h.service.ListAthleteWorkouts(c.Context(), principal, athleteID)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workouts": workouts})
}

func (h *WorkoutHandler) GetWorkout(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	detail, err := h.service.GetWorkout(c.Context(), principal, workoutID)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workout": detail})
}

func (h *WorkoutHandler) CompleteWorkout(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	workout, err := h.service.CompleteWorkout(c.Context(), principal, workoutID)
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.JSON(fiber.Map{"workout": workout})
}

func (h *WorkoutHandler) DeleteWorkout(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	if err := h.service.DeleteWorkout(c.Context(), principal, workoutID); err != nil {
		return mapWorkoutError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WorkoutHandler) AddSet(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	workoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workout id"})
	}

	var req addSetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	set, err := h.service.AddSet(c.Context(), principal, workoutID, services.AddSetInput{
		Exercise: req.Exercise,
		Weight:   req.Weight,
	})
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"set": set})
}

func (h *WorkoutHandler) DeleteSet(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	setID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid set id"})
	}

	if err := h.service.DeleteSet(c.Context(), principal, setID); err != nil {
		return mapWorkoutError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WorkoutHandler) AddRep(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	setID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid set id"})
	}

	var req addRepRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rep, err := h.service.AddRep(c.Context(), principal, setID, services.AddRepInput{
		Depth:       req.Depth,
		TimeSeconds: req.TimeSeconds,
		Velocity:    req.Velocity,
	})
	if err != nil {
		return mapWorkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rep": rep})
}

func (h *WorkoutHandler) DeleteRep(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	repID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rep id"})
	}

	if err := h.service.DeleteRep(c.Context(), principal, repID); err != nil {
		return mapWorkoutError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapWorkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process workout request"})
	}
}
