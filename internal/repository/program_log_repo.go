package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const logColumns = `id, program_exercise_id, user_id, weight, reps, workout_set_id, logged_at`

type ProgramLogRepository struct {
	db DBTX
}

func NewProgramLogRepository(db DBTX) *ProgramLogRepository {
	return &ProgramLogRepository{db: db}
}

func scanLog(row pgx.Row) (*models.ProgramSetLog, error) {
	var log models.ProgramSetLog
	err := row.Scan(
		&log.ID,
		&log.ProgramExerciseID,
		&log.UserID,
		&log.Weight,
		&log.Reps,
		&log.WorkoutSetID,
		&log.LoggedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

type CreateLogInput struct {
	ProgramExerciseID int64
	UserID            int64
	Weight            *float64
	Reps              int
	WorkoutSetID      *int64
}

func (r *ProgramLogRepository) Create(ctx context.Context, input CreateLogInput) (*models.ProgramSetLog, error) {
	query := `
		INSERT INTO program_set_logs (program_exercise_id, user_id, weight, reps, workout_set_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + logColumns
	return scanLog(r.db.QueryRow(
		ctx,
		query,
		input.ProgramExerciseID,
		input.UserID,
		input.Weight,
		input.Reps,
		input.WorkoutSetID,
	))
}

func (r *ProgramLogRepository) GetByID(ctx context.Context, logID int64) (*models.ProgramSetLog, error) {
	query := `SELECT ` + logColumns + ` FROM program_set_logs WHERE id = $1`
	return scanLog(r.db.QueryRow(ctx, query, logID))
}

func (r *ProgramLogRepository) ListByExerciseID(ctx context.Context, exerciseID int64) ([]models.ProgramSetLog, error) {
	query := `SELECT ` + logColumns + ` FROM program_set_logs WHERE program_exercise_id = $1 ORDER BY logged_at`
	rows, err := r.db.Query(ctx, query, exerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]models.ProgramSetLog, 0)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func (r *ProgramLogRepository) Delete(ctx context.Context, logID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM program_set_logs WHERE id = $1`, logID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
