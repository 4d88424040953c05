package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

type WorkoutRepository struct {
	db DBTX
}

func NewWorkoutRepository(db DBTX) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

func (r *WorkoutRepository) Create(ctx context.Context, userID int64, notes *string) (*models.Workout, error) {
	query := `
		INSERT INTO workouts (user_id, notes)
		VALUES ($1, $2)
		RETURNING id, user_id, notes, created_at, completed_at
	`
	var workout models.Workout
	err := r.db.QueryRow(ctx, query, userID, notes).Scan(
		&workout.ID,
		&workout.UserID,
		&workout.Notes,
		&workout.CreatedAt,
		&workout.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

func (r *WorkoutRepository) GetByID(ctx context.Context, workoutID int64) (*models.Workout, error) {
	query := `
		SELECT id, user_id, notes, created_at, completed_at
		FROM workouts
		WHERE id = $1
	`
	var workout models.Workout
	err := r.db.QueryRow(ctx, query, workoutID).Scan(
		&workout.ID,
		&workout.UserID,
		&workout.Notes,
		&workout.CreatedAt,
		&workout.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

func (r *WorkoutRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Workout, error) {
	query := `
		SELECT id, user_id, notes, created_at, completed_at
		FROM workouts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := make([]models.Workout, 0)
	for rows.Next() {
		var workout models.Workout
		if err := rows.Scan(
			&workout.ID,
			&workout.UserID,
			&workout.Notes,
			&workout.CreatedAt,
			&workout.CompletedAt,
		); err != nil {
			return nil, err
		}
		workouts = append(workouts, workout)
	}
	return workouts, rows.Err()
}

// Complete stamps completed_at once; completing an already finished
// workout reports no rows.
func (r *WorkoutRepository) Complete(ctx context.Context, workoutID int64) (*models.Workout, error) {
	query := `
		UPDATE workouts
		SET completed_at = now()
		WHERE id = $1 AND completed_at IS NULL
		RETURNING id, user_id, notes, created_at, completed_at
	`
	var workout models.Workout
	err := r.db.QueryRow(ctx, query, workoutID).Scan(
		&workout.ID,
		&workout.UserID,
		&workout.Notes,
		&workout.CreatedAt,
		&workout.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

// Delete removes the workout; sets and reps go with it via cascade.
func (r *WorkoutRepository) Delete(ctx context.Context, workoutID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, workoutID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
