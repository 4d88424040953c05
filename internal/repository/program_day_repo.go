package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

type ProgramDayRepository struct {
	db DBTX
}

func NewProgramDayRepository(db DBTX) *ProgramDayRepository {
	return &ProgramDayRepository{db: db}
}

// Create assigns the next day_number in-statement; callers hold the
// program's advisory lock.
func (r *ProgramDayRepository) Create(ctx context.Context, programID int64, name string) (*models.ProgramDay, error) {
	query := `
		INSERT INTO program_days (program_id, day_number, name)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(day_number), 0) + 1 FROM program_days WHERE program_id = $1),
			$2
		)
		RETURNING id, program_id, day_number, name
	`
	var day models.ProgramDay
	err := r.db.QueryRow(ctx, query, programID, name).Scan(&day.ID, &day.ProgramID, &day.DayNumber, &day.Name)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *ProgramDayRepository) GetByID(ctx context.Context, dayID int64) (*models.ProgramDay, error) {
	query := `SELECT id, program_id, day_number, name FROM program_days WHERE id = $1`
	var day models.ProgramDay
	err := r.db.QueryRow(ctx, query, dayID).Scan(&day.ID, &day.ProgramID, &day.DayNumber, &day.Name)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *ProgramDayRepository) ListByProgramID(ctx context.Context, programID int64) ([]models.ProgramDay, error) {
	query := `SELECT id, program_id, day_number, name FROM program_days WHERE program_id = $1 ORDER BY day_number`
	rows, err := r.db.Query(ctx, query, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]models.ProgramDay, 0)
	for rows.Next() {
		var day models.ProgramDay
		if err := rows.Scan(&day.ID, &day.ProgramID, &day.DayNumber, &day.Name); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (r *ProgramDayRepository) Rename(ctx context.Context, dayID int64, name string) (*models.ProgramDay, error) {
	query := `
		UPDATE program_days SET name = $2 WHERE id = $1
		RETURNING id, program_id, day_number, name
	`
	var day models.ProgramDay
	err := r.db.QueryRow(ctx, query, dayID, name).Scan(&day.ID, &day.ProgramID, &day.DayNumber, &day.Name)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *ProgramDayRepository) Delete(ctx context.Context, dayID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM program_days WHERE id = $1`, dayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ProgramDayRepository) CloseNumberGap(ctx context.Context, programID int64, deletedNumber int) error {
	if _, err := r.db.Exec(ctx, `SET CONSTRAINTS ALL DEFERRED`); err != nil {
		return err
	}
	_, err := r.db.Exec(
		ctx,
		`UPDATE program_days SET day_number = day_number - 1 WHERE program_id = $1 AND day_number > $2`,
		programID,
		deletedNumber,
	)
	return err
}
