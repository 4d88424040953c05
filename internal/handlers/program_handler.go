package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/velolift/VeloLiftBack/internal/repository"
	"github.com/velolift/VeloLiftBack/internal/services"
)

const maxVideoSizeBytes = 50 << 20

type ProgramHandler struct {
	service *services.ProgramService
}

func NewProgramHandler(service *services.ProgramService) *ProgramHandler {
	return &ProgramHandler{service: service}
}

type createProgramRequest struct {
	AthleteID   *int64  `json:"athlete_id" validate:"omitempty,gt=0"`
	Name        string  `json:"name" validate:"required,min=1,max=160"`
	Description *string `json:"description"`
}

type updateProgramRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=160"`
	Description *string `json:"description"`
}

type dayRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type addExerciseRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=120"`
	TargetSets *int    `json:"target_sets" validate:"omitempty,gt=0"`
	TargetReps *string `json:"target_reps"`
	Notes      *string `json:"notes"`
}

type updateExerciseRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	TargetSets *int    `json:"target_sets" validate:"omitempty,gt=0"`
	TargetReps *string `json:"target_reps"`
	Notes      *string `json:"notes"`
}

type setVideoRequest struct {
	VideoURL *string `json:"video_url" validate:"omitempty,url"`
}

type logSetRequest struct {
	Weight       *float64 `json:"weight" validate:"omitempty,gte=0"`
	Reps         int      `json:"reps" validate:"required,gt=0"`
	WorkoutSetID *int64   `json:"workout_set_id" validate:"omitempty,gt=0"`
}

func (h *ProgramHandler) CreateProgram(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	program, err := h.service.CreateProgram(c.Context(), principal, services.CreateProgramInput{
		AthleteID:   req.AthleteID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"program": program})
}

func (h *ProgramHandler) ListPrograms(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	programs, err := h.service.ListPrograms(c.Context(), principal)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"programs": programs})
}

func (h *ProgramHandler) GetProgram(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid program id"})
	}

	detail, err := h.service.GetProgram(c.Context(), principal, programID)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"program": detail})
}

func (h *ProgramHandler) UpdateProgram(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid program id"})
	}

	var req updateProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	program, err := h.service.UpdateProgram(c.Context(), principal, programID, services.UpdateProgramInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"program": program})
}

func (h *ProgramHandler) DeleteProgram(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid program id"})
	}

	if err := h.service.DeleteProgram(c.Context(), principal, programID); err != nil {
		return mapProgramError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProgramHandler) AddDay(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	programID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid program id"})
	}

	var req dayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	day, err := h.service.AddDay(c.Context(), principal, programID, req.Name)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"day": day})
}

func (h *ProgramHandler) RenameDay(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	dayID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid day id"})
	}

	var req dayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	day, err := h.service.RenameDay(c.Context(), principal, dayID, req.Name)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"day": day})
}

func (h *ProgramHandler) DeleteDay(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	dayID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid day id"})
	}

	if err := h.service.DeleteDay(c.Context(), principal, dayID); err != nil {
		return mapProgramError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProgramHandler) AddExercise(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	dayID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid day id"})
	}

	var req addExerciseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	exercise, err := h.service.AddExercise(c.Context(), principal, dayID, services.AddExerciseInput{
		Name:       req.Name,
		TargetSets: req.TargetSets,
		TargetReps: req.TargetReps,
		Notes:      req.Notes,
	})
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"exercise": exercise})
}

func (h *ProgramHandler) UpdateExercise(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	var req updateExerciseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	exercise, err := h.service.UpdateExercise(c.Context(), principal, exerciseID, repository.UpdateExerciseInput{
		Name:       req.Name,
		TargetSets: req.TargetSets,
		TargetReps: req.TargetReps,
		Notes:      req.Notes,
	})
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"exercise": exercise})
}

func (h *ProgramHandler) DeleteExercise(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	if err := h.service.DeleteExercise(c.Context(), principal, exerciseID); err != nil {
		return mapProgramError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProgramHandler) SetExerciseVideo(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	var req setVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	exercise, err := h.service.SetExerciseVideo(c.Context(), principal, exerciseID, req.VideoURL)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"exercise": exercise})
}

func (h *ProgramHandler) UploadExerciseVideo(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}
	if fileHeader.Size > maxVideoSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file exceeds 50MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer file.Close()

	exercise, err := h.service.UploadExerciseVideo(c.Context(), principal, exerciseID, file, fileHeader.Filename)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"exercise": exercise})
}

func (h *ProgramHandler) LogSet(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	var req logSetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log, err := h.service.LogSet(c.Context(), principal, exerciseID, services.LogSetInput{
		Weight:       req.Weight,
		Reps:         req.Reps,
		WorkoutSetID: req.WorkoutSetID,
	})
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"log": log})
}

func (h *ProgramHandler) ListLogs(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	exerciseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	logs, err := h.service.ListLogs(c.Context(), principal, exerciseID)
	if err != nil {
		return mapProgramError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs})
}

func (h *ProgramHandler) DeleteLog(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	logID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid log id"})
	}

	if err := h.service.DeleteLog(c.Context(), principal, logID); err != nil {
		return mapProgramError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapProgramError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Storage unavailable"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process program request"})
	}
}
