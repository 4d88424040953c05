package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/velolift/VeloLiftBack/internal/models"
)

const inviteColumns = `id, coach_id, email, token, status, expires_at, accepted_at, created_at`

type InviteRepository struct {
	db DBTX
}

func NewInviteRepository(db DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

func scanInvite(row pgx.Row) (*models.CoachInvite, error) {
	var invite models.CoachInvite
	err := row.Scan(
		&invite.ID,
		&invite.CoachID,
		&invite.Email,
		&invite.Token,
		&invite.Status,
		&invite.ExpiresAt,
		&invite.AcceptedAt,
		&invite.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// Create inserts a fresh invite. A token collision trips the unique index
// and surfaces as the insert error; it is never swallowed here.
func (r *InviteRepository) Create(
	ctx context.Context,
	coachID int64,
	email string,
	token string,
	expiresAt time.Time,
) (*models.CoachInvite, error) {
	query := `
		INSERT INTO coach_invites (coach_id, email, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + inviteColumns
	return scanInvite(r.db.QueryRow(ctx, query, coachID, email, token, expiresAt))
}

func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*models.CoachInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM coach_invites WHERE token = $1`
	return scanInvite(r.db.QueryRow(ctx, query, token))
}

func (r *InviteRepository) GetByTokenForUpdate(ctx context.Context, token string) (*models.CoachInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM coach_invites WHERE token = $1 FOR UPDATE`
	return scanInvite(r.db.QueryRow(ctx, query, token))
}

func (r *InviteRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.CoachInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM coach_invites WHERE coach_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]models.CoachInvite, 0)
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *invite)
	}
	return invites, rows.Err()
}

// UpdateStatusIfCurrent transitions status only from the expected current
// value; pgx.ErrNoRows reports a lost race or an already-consumed invite.
func (r *InviteRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	inviteID int64,
	currentStatus string,
	nextStatus string,
) (*models.CoachInvite, error) {
	query := `
		UPDATE coach_invites
		SET status = $3,
		    accepted_at = CASE WHEN $3 = 'accepted' THEN now() ELSE accepted_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + inviteColumns
	return scanInvite(r.db.QueryRow(ctx, query, inviteID, currentStatus, nextStatus))
}

func (r *InviteRepository) Delete(ctx context.Context, coachID, inviteID int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM coach_invites WHERE id = $1 AND coach_id = $2`,
		inviteID,
		coachID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
