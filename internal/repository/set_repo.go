package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const setColumns = `id, workout_id, set_number, exercise, weight, reps_completed,
		avg_depth, avg_velocity, min_velocity, max_velocity, fatigue_drop, created_at`

type SetRepository struct {
	db DBTX
}

func NewSetRepository(db DBTX) *SetRepository {
	return &SetRepository{db: db}
}

func scanSet(row pgx.Row) (*models.Set, error) {
	var set models.Set
	err := row.Scan(
		&set.ID,
		&set.WorkoutID,
		&set.SetNumber,
		&set.Exercise,
		&set.Weight,
		&set.RepsCompleted,
		&set.AvgDepth,
		&set.AvgVelocity,
		&set.MinVelocity,
		&set.MaxVelocity,
		&set.FatigueDrop,
		&set.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

type CreateSetInput struct {
	WorkoutID int64
	Exercise  string
	Weight    *float64
}

// Create assigns the next set_number within the insert statement. Callers
// must hold the workout's advisory lock so concurrent appends cannot read
// the same MAX.
func (r *SetRepository) Create(ctx context.Context, input CreateSetInput) (*models.Set, error) {
	query := `
		INSERT INTO sets (workout_id, set_number, exercise, weight)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(set_number), 0) + 1 FROM sets WHERE workout_id = $1),
			$2,
			$3
		)
		RETURNING ` + setColumns
	return scanSet(r.db.QueryRow(ctx, query, input.WorkoutID, input.Exercise, input.Weight))
}

func (r *SetRepository) GetByID(ctx context.Context, setID int64) (*models.Set, error) {
	query := `SELECT ` + setColumns + ` FROM sets WHERE id = $1`
	return scanSet(r.db.QueryRow(ctx, query, setID))
}

func (r *SetRepository) GetByIDForUpdate(ctx context.Context, setID int64) (*models.Set, error) {
	query := `SELECT ` + setColumns + ` FROM sets WHERE id = $1 FOR UPDATE`
	return scanSet(r.db.QueryRow(ctx, query, setID))
}

func (r *SetRepository) ListByWorkoutID(ctx context.Context, workoutID int64) ([]models.Set, error) {
	query := `SELECT ` + setColumns + ` FROM sets WHERE workout_id = $1 ORDER BY set_number`
	rows, err := r.db.Query(ctx, query, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]models.Set, 0)
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *set)
	}
	return sets, rows.Err()
}

// UpdateAggregates persists the recomputed derived fields. It runs in the
// same transaction as the rep change that invalidated them.
func (r *SetRepository) UpdateAggregates(
	ctx context.Context,
	setID int64,
	aggregates models.SetAggregates,
) error {
	query := `
		UPDATE sets
		SET reps_completed = $2,
		    avg_depth = $3,
		    avg_velocity = $4,
		    min_velocity = $5,
		    max_velocity = $6,
		    fatigue_drop = $7
		WHERE id = $1
	`
	tag, err := r.db.Exec(
		ctx,
		query,
		setID,
		aggregates.RepsCompleted,
		aggregates.AvgDepth,
		aggregates.AvgVelocity,
		aggregates.MinVelocity,
		aggregates.MaxVelocity,
		aggregates.FatigueDrop,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *SetRepository) Delete(ctx context.Context, setID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sets WHERE id = $1`, setID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CloseNumberGap shifts later sets down after a delete so set numbers stay
// a contiguous 1-based run. The unique constraint is deferred for the
// duration of the statement.
func (r *SetRepository) CloseNumberGap(ctx context.Context, workoutID int64, deletedNumber int) error {
	if _, err := r.db.Exec(ctx, `SET CONSTRAINTS ALL DEFERRED`); err != nil {
		return err
	}
	_, err := r.db.Exec(
		ctx,
		`UPDATE sets SET set_number = set_number - 1 WHERE workout_id = $1 AND set_number > $2`,
		workoutID,
		deletedNumber,
	)
	return err
}
