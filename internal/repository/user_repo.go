package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/velolift/VeloLiftBack/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, password_hash, subscribed, subscription_type, subscription_end_date,
		stripe_customer_id, is_coach, coach_id, full_name, unit_preference, height_inches, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Subscribed,
		&user.SubscriptionType,
		&user.SubscriptionEndDate,
		&user.StripeCustomerID,
		&user.IsCoach,
		&user.CoachID,
		&user.FullName,
		&user.UnitPreference,
		&user.HeightInches,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, subscribed, is_coach, unit_preference, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.Subscribed, &user.IsCoach, &user.UnitPreference, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 FOR UPDATE`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// UpsertSubscribed creates or re-marks a user as subscribed by email. The
// password hash is empty for rows created here: the account exists for
// billing purposes until the user registers and sets credentials. The
// statement is idempotent so webhook redelivery cannot duplicate accounts.
func (r *UserRepository) UpsertSubscribed(
	ctx context.Context,
	email string,
	subscriptionType string,
	stripeCustomerID *string,
) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, subscribed, subscription_type, stripe_customer_id)
		VALUES ($1, '', TRUE, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET subscribed = TRUE,
		    subscription_type = EXCLUDED.subscription_type,
		    subscription_end_date = NULL,
		    stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, users.stripe_customer_id),
		    updated_at = now()
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, email, subscriptionType, stripeCustomerID))
}

// ClaimAccount attaches credentials to a row created by a billing event
// before the buyer registered. Only rows without a password can be
// claimed.
func (r *UserRepository) ClaimAccount(
	ctx context.Context,
	email string,
	passwordHash string,
	fullName *string,
) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
		    full_name = COALESCE($3, full_name),
		    updated_at = now()
		WHERE email = $1 AND password_hash = ''
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, email, passwordHash, fullName))
}

func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return scanUser(r.db.QueryRow(ctx, query, customerID))
}

func (r *UserRepository) UpdateSubscriptionState(
	ctx context.Context,
	userID int64,
	subscribed bool,
	subscriptionType *string,
	endDate *time.Time,
) error {
	query := `
		UPDATE users
		SET subscribed = $2, subscription_type = $3, subscription_end_date = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, subscribed, subscriptionType, endDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// PromoteToCoach flips the coach flag and clears any coach link: a coach
// is never itself somebody's athlete.
func (r *UserRepository) PromoteToCoach(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET is_coach = TRUE,
		    coach_id = NULL,
		    subscribed = TRUE,
		    subscription_type = $2,
		    subscription_end_date = NULL,
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, models.SubscriptionCoach)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UserRepository) SetCoachLink(ctx context.Context, userID int64, coachID *int64) error {
	query := `UPDATE users SET coach_id = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, userID, coachID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type UpdateSettingsInput struct {
	FullName       *string
	UnitPreference *string
	HeightInches   *float64
}

func (r *UserRepository) UpdateSettings(
	ctx context.Context,
	userID int64,
	input UpdateSettingsInput,
) (*models.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    unit_preference = COALESCE($3, unit_preference),
		    height_inches = COALESCE($4, height_inches),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID, input.FullName, input.UnitPreference, input.HeightInches))
}

func (r *UserRepository) ListAthletesByCoachID(ctx context.Context, coachID int64) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE coach_id = $1 ORDER BY email`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	athletes := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, *user)
	}
	return athletes, rows.Err()
}
