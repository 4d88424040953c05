package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const exerciseColumns = `id, program_day_id, position, name, target_sets, target_reps, notes, video_url`

type ProgramExerciseRepository struct {
	db DBTX
}

func NewProgramExerciseRepository(db DBTX) *ProgramExerciseRepository {
	return &ProgramExerciseRepository{db: db}
}

func scanExercise(row pgx.Row) (*models.ProgramExercise, error) {
	var exercise models.ProgramExercise
	err := row.Scan(
		&exercise.ID,
		&exercise.ProgramDayID,
		&exercise.Position,
		&exercise.Name,
		&exercise.TargetSets,
		&exercise.TargetReps,
		&exercise.Notes,
		&exercise.VideoURL,
	)
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

type CreateExerciseInput struct {
	ProgramDayID int64
	Name         string
	TargetSets   *int
	TargetReps   *string
	Notes        *string
}

// Create assigns the next position in-statement; callers hold the day's
// advisory lock.
func (r *ProgramExerciseRepository) Create(
	ctx context.Context,
	input CreateExerciseInput,
) (*models.ProgramExercise, error) {
	query := `
		INSERT INTO program_exercises (program_day_id, position, name, target_sets, target_reps, notes)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM program_exercises WHERE program_day_id = $1),
			$2, $3, $4, $5
		)
		RETURNING ` + exerciseColumns
	return scanExercise(r.db.QueryRow(
		ctx,
		query,
		input.ProgramDayID,
		input.Name,
		input.TargetSets,
		input.TargetReps,
		input.Notes,
	))
}

func (r *ProgramExerciseRepository) GetByID(ctx context.Context, exerciseID int64) (*models.ProgramExercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM program_exercises WHERE id = $1`
	return scanExercise(r.db.QueryRow(ctx, query, exerciseID))
}

func (r *ProgramExerciseRepository) ListByDayID(ctx context.Context, dayID int64) ([]models.ProgramExercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM program_exercises WHERE program_day_id = $1 ORDER BY position`
	rows, err := r.db.Query(ctx, query, dayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]models.ProgramExercise, 0)
	for rows.Next() {
		exercise, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *exercise)
	}
	return exercises, rows.Err()
}

type UpdateExerciseInput struct {
	Name       *string
	TargetSets *int
	TargetReps *string
	Notes      *string
}

func (r *ProgramExerciseRepository) Update(
	ctx context.Context,
	exerciseID int64,
	input UpdateExerciseInput,
) (*models.ProgramExercise, error) {
	query := `
		UPDATE program_exercises
		SET name = COALESCE($2, name),
		    target_sets = COALESCE($3, target_sets),
		    target_reps = COALESCE($4, target_reps),
		    notes = COALESCE($5, notes)
		WHERE id = $1
		RETURNING ` + exerciseColumns
	return scanExercise(r.db.QueryRow(
		ctx,
		query,
		exerciseID,
		input.Name,
		input.TargetSets,
		input.TargetReps,
		input.Notes,
	))
}

// SetVideoURL is separate from Update on purpose: video_url writes are
// coach-only and the service gates them independently.
func (r *ProgramExerciseRepository) SetVideoURL(
	ctx context.Context,
	exerciseID int64,
	videoURL *string,
) (*models.ProgramExercise, error) {
	query := `
		UPDATE program_exercises SET video_url = $2 WHERE id = $1
		RETURNING ` + exerciseColumns
	return scanExercise(r.db.QueryRow(ctx, query, exerciseID, videoURL))
}

func (r *ProgramExerciseRepository) Delete(ctx context.Context, exerciseID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM program_exercises WHERE id = $1`, exerciseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ProgramExerciseRepository) CloseNumberGap(ctx context.Context, dayID int64, deletedPosition int) error {
	if _, err := r.db.Exec(ctx, `SET CONSTRAINTS ALL DEFERRED`); err != nil {
		return err
	}
	_, err := r.db.Exec(
		ctx,
		`UPDATE program_exercises SET position = position - 1 WHERE program_day_id = $1 AND position > $2`,
		dayID,
		deletedPosition,
	)
	return err
}
