package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const programColumns = `id, user_id, coach_id, name, description, created_at, updated_at`

type ProgramRepository struct {
	db DBTX
}

func NewProgramRepository(db DBTX) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var program models.Program
	err := row.Scan(
		&program.ID,
		&program.UserID,
		&program.CoachID,
		&program.Name,
		&program.Description,
		&program.CreatedAt,
		&program.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &program, nil
}

type CreateProgramInput struct {
	UserID      int64
	CoachID     *int64
	Name        string
	Description *string
}

func (r *ProgramRepository) Create(ctx context.Context, input CreateProgramInput) (*models.Program, error) {
	query := `
		INSERT INTO programs (user_id, coach_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + programColumns
	return scanProgram(r.db.QueryRow(ctx, query, input.UserID, input.CoachID, input.Name, input.Description))
}

func (r *ProgramRepository) GetByID(ctx context.Context, programID int64) (*models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`
	return scanProgram(r.db.QueryRow(ctx, query, programID))
}

// ListVisibleToUser returns programs the user owns plus programs authored
// for them by a coach (same rows: user_id covers both).
func (r *ProgramRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ProgramRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE coach_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, coachID)
}

func (r *ProgramRepository) list(ctx context.Context, query string, arg any) ([]models.Program, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := make([]models.Program, 0)
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *program)
	}
	return programs, rows.Err()
}

type UpdateProgramInput struct {
	Name        *string
	Description *string
}

func (r *ProgramRepository) Update(
	ctx context.Context,
	programID int64,
	input UpdateProgramInput,
) (*models.Program, error) {
	query := `
		UPDATE programs
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + programColumns
	return scanProgram(r.db.QueryRow(ctx, query, programID, input.Name, input.Description))
}

func (r *ProgramRepository) Delete(ctx context.Context, programID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM programs WHERE id = $1`, programID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ProgramRepository) Touch(ctx context.Context, programID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE programs SET updated_at = now() WHERE id = $1`, programID)
	return err
}
