package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

type ProgramService struct {
	db             *pgxpool.Pool
	programRepo    *repository.ProgramRepository
	dayRepo        *repository.ProgramDayRepository
	exerciseRepo   *repository.ProgramExerciseRepository
	logRepo        *repository.ProgramLogRepository
	setRepo        *repository.SetRepository
	workoutRepo    *repository.WorkoutRepository
	userRepo       userReader
	storageService StorageService
}

func NewProgramService(
	db *pgxpool.Pool,
	programRepo *repository.ProgramRepository,
	dayRepo *repository.ProgramDayRepository,
	exerciseRepo *repository.ProgramExerciseRepository,
	logRepo *repository.ProgramLogRepository,
	setRepo *repository.SetRepository,
	workoutRepo *repository.WorkoutRepository,
	userRepo userReader,
	storageService StorageService,
) *ProgramService {
	return &ProgramService{
		db:             db,
		programRepo:    programRepo,
		dayRepo:        dayRepo,
		exerciseRepo:   exerciseRepo,
		logRepo:        logRepo,
		setRepo:        setRepo,
		workoutRepo:    workoutRepo,
		userRepo:       userRepo,
		storageService: storageService,
	}
}

type CreateProgramInput struct {
	AthleteID   *int64
	Name        string
	Description *string
}

// CreateProgram creates either a self-authored program or, for a coach, a
// program assigned to one of their linked athletes.
func (s *ProgramService) CreateProgram(
	ctx context.Context,
	principal models.Principal,
	input CreateProgramInput,
) (*models.Program, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	ownerID := principal.ID
	var coachID *int64
	if input.AthleteID != nil && *input.AthleteID != principal.ID {
		if !principal.IsCoach {
			return nil, ErrForbidden
		}
		athlete, err := s.userRepo.GetByID(ctx, *input.AthleteID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		if !CanManageAthlete(principal, athlete) {
			return nil, ErrForbidden
		}
		ownerID = athlete.ID
		coachID = &principal.ID
	}

	return s.programRepo.Create(ctx, repository.CreateProgramInput{
		UserID:      ownerID,
		CoachID:     coachID,
		Name:        name,
		Description: input.Description,
	})
}

// ListPrograms returns programs the principal owns plus, for coaches,
// programs they authored for athletes.
func (s *ProgramService) ListPrograms(
	ctx context.Context,
	principal models.Principal,
) ([]models.Program, error) {
	programs, err := s.programRepo.ListByUserID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if !principal.IsCoach {
		return programs, nil
	}

	authored, err := s.programRepo.ListByCoachID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	return append(programs, authored...), nil
}

func (s *ProgramService) GetProgram(
	ctx context.Context,
	principal models.Principal,
	programID int64,
) (*models.ProgramDetail, error) {
	program, err := s.visibleProgram(ctx, principal, programID)
	if err != nil {
		return nil, err
	}

	days, err := s.dayRepo.ListByProgramID(ctx, programID)
	if err != nil {
		return nil, err
	}

	detail := &models.ProgramDetail{Program: *program, Days: make([]models.ProgramDayDetail, 0, len(days))}
	for _, day := range days {
		exercises, err := s.exerciseRepo.ListByDayID(ctx, day.ID)
		if err != nil {
			return nil, err
		}
		detail.Days = append(detail.Days, models.ProgramDayDetail{ProgramDay: day, Exercises: exercises})
	}
	return detail, nil
}

type UpdateProgramInput struct {
	Name        *string
	Description *string
}

func (s *ProgramService) UpdateProgram(
	ctx context.Context,
	principal models.Principal,
	programID int64,
	input UpdateProgramInput,
) (*models.Program, error) {
	program, err := s.editableProgram(ctx, principal, programID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidInput
	}
	return s.programRepo.Update(ctx, program.ID, repository.UpdateProgramInput{
		Name:        input.Name,
		Description: input.Description,
	})
}

func (s *ProgramService) DeleteProgram(
	ctx context.Context,
	principal models.Principal,
	programID int64,
) error {
	program, err := s.editableProgram(ctx, principal, programID)
	if err != nil {
		return err
	}
	return s.programRepo.Delete(ctx, program.ID)
}

func (s *ProgramService) AddDay(
	ctx context.Context,
	principal models.Principal,
	programID int64,
	name string,
) (*models.ProgramDay, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	program, err := s.editableProgram(ctx, principal, programID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceProgramDays, program.ID); err != nil {
		return nil, err
	}

	day, err := repository.NewProgramDayRepository(tx).Create(ctx, program.ID, name)
	if err != nil {
		return nil, err
	}
	if err := repository.NewProgramRepository(tx).Touch(ctx, program.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *ProgramService) RenameDay(
	ctx context.Context,
	principal models.Principal,
	dayID int64,
	name string,
) (*models.ProgramDay, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	day, _, err := s.editableDay(ctx, principal, dayID)
	if err != nil {
		return nil, err
	}
	return s.dayRepo.Rename(ctx, day.ID, name)
}

func (s *ProgramService) DeleteDay(
	ctx context.Context,
	principal models.Principal,
	dayID int64,
) error {
	day, _, err := s.editableDay(ctx, principal, dayID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceProgramDays, day.ProgramID); err != nil {
		return err
	}

	txDayRepo := repository.NewProgramDayRepository(tx)
	if err := txDayRepo.Delete(ctx, day.ID); err != nil {
		return err
	}
	if err := txDayRepo.CloseNumberGap(ctx, day.ProgramID, day.DayNumber); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type AddExerciseInput struct {
	Name       string
	TargetSets *int
	TargetReps *string
	Notes      *string
}

func (s *ProgramService) AddExercise(
	ctx context.Context,
	principal models.Principal,
	dayID int64,
	input AddExerciseInput,
) (*models.ProgramExercise, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if input.TargetSets != nil && *input.TargetSets <= 0 {
		return nil, ErrInvalidInput
	}
	day, _, err := s.editableDay(ctx, principal, dayID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceDayExercises, day.ID); err != nil {
		return nil, err
	}

	exercise, err := repository.NewProgramExerciseRepository(tx).Create(ctx, repository.CreateExerciseInput{
		ProgramDayID: day.ID,
		Name:         name,
		TargetSets:   input.TargetSets,
		TargetReps:   input.TargetReps,
		Notes:        input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *ProgramService) UpdateExercise(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
	input repository.UpdateExerciseInput,
) (*models.ProgramExercise, error) {
	exercise, _, err := s.editableExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidInput
	}
	if input.TargetSets != nil && *input.TargetSets <= 0 {
		return nil, ErrInvalidInput
	}
	return s.exerciseRepo.Update(ctx, exercise.ID, input)
}

func (s *ProgramService) DeleteExercise(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
) error {
	exercise, _, err := s.editableExercise(ctx, principal, exerciseID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceDayExercises, exercise.ProgramDayID); err != nil {
		return err
	}

	txExerciseRepo := repository.NewProgramExerciseRepository(tx)
	if err := txExerciseRepo.Delete(ctx, exercise.ID); err != nil {
		return err
	}
	if err := txExerciseRepo.CloseNumberGap(ctx, exercise.ProgramDayID, exercise.Position); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetExerciseVideo stores a demo video URL. Coach-only, per the video_url
// policy; a non-coach owner is rejected even on a program they can edit.
func (s *ProgramService) SetExerciseVideo(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
	videoURL *string,
) (*models.ProgramExercise, error) {
	if videoURL != nil && strings.TrimSpace(*videoURL) == "" {
		return nil, ErrInvalidInput
	}

	exercise, program, err := s.resolveExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, err
	}
	if !CanSetVideoURL(principal, program) {
		return nil, ErrForbidden
	}
	return s.exerciseRepo.SetVideoURL(ctx, exercise.ID, videoURL)
}

// UploadExerciseVideo uploads the demo clip to object storage and points
// video_url at it, deleting the upload again if the update fails.
func (s *ProgramService) UploadExerciseVideo(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
	file multipart.File,
	filename string,
) (*models.ProgramExercise, error) {
	if s.storageService == nil {
		return nil, ErrStorageUnavailable
	}
	if file == nil {
		return nil, ErrInvalidInput
	}

	exercise, program, err := s.resolveExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, err
	}
	if !CanSetVideoURL(principal, program) {
		return nil, ErrForbidden
	}

	objectName := buildVideoFilename(principal.ID, exercise.ID, filename)
	fileURL, err := s.storageService.UploadFile(ctx, file, objectName, "exercise-videos")
	if err != nil {
		return nil, err
	}

	updated, err := s.exerciseRepo.SetVideoURL(ctx, exercise.ID, &fileURL)
	if err != nil {
		cleanupErr := s.storageService.DeleteFile(ctx, fileURL)
		if cleanupErr != nil {
			return nil, errors.Join(err, fmt.Errorf("cleanup failed: %w", cleanupErr))
		}
		return nil, err
	}
	return updated, nil
}

type LogSetInput struct {
	Weight       *float64
	Reps         int
	WorkoutSetID *int64
}

// LogSet records performance against a program exercise. Athletes may log
// against any program assigned to them, coach-authored or not. The
// optional workout_set_id must point at a tracker set from one of the
// athlete's own workouts.
func (s *ProgramService) LogSet(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
	input LogSetInput,
) (*models.ProgramSetLog, error) {
	if input.Reps <= 0 {
		return nil, ErrInvalidInput
	}
	if input.Weight != nil && *input.Weight < 0 {
		return nil, ErrInvalidInput
	}

	exercise, program, err := s.resolveExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, err
	}
	if !CanLogProgramSet(principal, program) {
		return nil, ErrForbidden
	}

	if input.WorkoutSetID != nil {
		set, err := s.setRepo.GetByID(ctx, *input.WorkoutSetID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		workout, err := s.workoutRepo.GetByID(ctx, set.WorkoutID)
		if err != nil {
			return nil, err
		}
		if workout.UserID != principal.ID {
			return nil, ErrInvalidInput
		}
	}

	return s.logRepo.Create(ctx, repository.CreateLogInput{
		ProgramExerciseID: exercise.ID,
		UserID:            principal.ID,
		Weight:            input.Weight,
		Reps:              input.Reps,
		WorkoutSetID:      input.WorkoutSetID,
	})
}

func (s *ProgramService) ListLogs(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
) ([]models.ProgramSetLog, error) {
	exercise, _, err := s.resolveExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, err
	}
	return s.logRepo.ListByExerciseID(ctx, exercise.ID)
}

func (s *ProgramService) DeleteLog(
	ctx context.Context,
	principal models.Principal,
	logID int64,
) error {
	log, err := s.logRepo.GetByID(ctx, logID)
	if err != nil {
		return err
	}
	if log.UserID != principal.ID {
		return pgx.ErrNoRows
	}
	return s.logRepo.Delete(ctx, logID)
}

// visibleProgram loads a program the principal may read; hidden programs
// read as absent.
func (s *ProgramService) visibleProgram(
	ctx context.Context,
	principal models.Principal,
	programID int64,
) (*models.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !CanViewProgram(principal, program) {
		return nil, pgx.ErrNoRows
	}
	return program, nil
}

// editableProgram distinguishes invisible (not found) from visible but
// read-only (forbidden).
func (s *ProgramService) editableProgram(
	ctx context.Context,
	principal models.Principal,
	programID int64,
) (*models.Program, error) {
	program, err := s.visibleProgram(ctx, principal, programID)
	if err != nil {
		return nil, err
	}
	if !CanEditProgram(principal, program) {
		return nil, ErrForbidden
	}
	return program, nil
}

func (s *ProgramService) editableDay(
	ctx context.Context,
	principal models.Principal,
	dayID int64,
) (*models.ProgramDay, *models.Program, error) {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		return nil, nil, err
	}
	program, err := s.editableProgram(ctx, principal, day.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	return day, program, nil
}

func (s *ProgramService) resolveExercise(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
) (*models.ProgramExercise, *models.Program, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		return nil, nil, err
	}
	day, err := s.dayRepo.GetByID(ctx, exercise.ProgramDayID)
	if err != nil {
		return nil, nil, err
	}
	program, err := s.visibleProgram(ctx, principal, day.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	return exercise, program, nil
}

func (s *ProgramService) editableExercise(
	ctx context.Context,
	principal models.Principal,
	exerciseID int64,
) (*models.ProgramExercise, *models.Program, error) {
	exercise, program, err := s.resolveExercise(ctx, principal, exerciseID)
	if err != nil {
		return nil, nil, err
	}
	if !CanEditProgram(principal, program) {
		return nil, nil, ErrForbidden
	}
	return exercise, program, nil
}

func buildVideoFilename(coachID, exerciseID int64, original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("%d-%d-%d%s", coachID, exerciseID, time.Now().UnixNano(), ext)
}
