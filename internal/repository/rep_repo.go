package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const repColumns = `id, set_id, rep_number, depth, time_seconds, velocity, quality, created_at`

type RepRepository struct {
	db DBTX
}

func NewRepRepository(db DBTX) *RepRepository {
	return &RepRepository{db: db}
}

func scanRep(row pgx.Row) (*models.Rep, error) {
	var rep models.Rep
	err := row.Scan(
		&rep.ID,
		&rep.SetID,
		&rep.RepNumber,
		&rep.Depth,
		&rep.TimeSeconds,
		&rep.Velocity,
		&rep.Quality,
		&rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

type CreateRepInput struct {
	SetID       int64
	Depth       *float64
	TimeSeconds *float64
	Velocity    *float64
	Quality     *string
}

// Create assigns the next rep_number in-statement; callers hold the set's
// advisory lock.
func (r *RepRepository) Create(ctx context.Context, input CreateRepInput) (*models.Rep, error) {
	query := `
		INSERT INTO reps (set_id, rep_number, depth, time_seconds, velocity, quality)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(rep_number), 0) + 1 FROM reps WHERE set_id = $1),
			$2, $3, $4, $5
		)
		RETURNING ` + repColumns
	return scanRep(r.db.QueryRow(
		ctx,
		query,
		input.SetID,
		input.Depth,
		input.TimeSeconds,
		input.Velocity,
		input.Quality,
	))
}

func (r *RepRepository) GetByID(ctx context.Context, repID int64) (*models.Rep, error) {
	query := `SELECT ` + repColumns + ` FROM reps WHERE id = $1`
	return scanRep(r.db.QueryRow(ctx, query, repID))
}

func (r *RepRepository) ListBySetID(ctx context.Context, setID int64) ([]models.Rep, error) {
	query := `SELECT ` + repColumns + ` FROM reps WHERE set_id = $1 ORDER BY rep_number`
	rows, err := r.db.Query(ctx, query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := make([]models.Rep, 0)
	for rows.Next() {
		rep, err := scanRep(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, *rep)
	}
	return reps, rows.Err()
}

func (r *RepRepository) Delete(ctx context.Context, repID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reps WHERE id = $1`, repID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *RepRepository) CloseNumberGap(ctx context.Context, setID int64, deletedNumber int) error {
	if _, err := r.db.Exec(ctx, `SET CONSTRAINTS ALL DEFERRED`); err != nil {
		return err
	}
	_, err := r.db.Exec(
		ctx,
		`UPDATE reps SET rep_number = rep_number - 1 WHERE set_id = $1 AND rep_number > $2`,
		setID,
		deletedNumber,
	)
	return err
}
