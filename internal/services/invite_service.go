package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

// ErrInviteInvalid covers every way a redeem can fail once the invite is
// found: already accepted, expired, or redeemed by the wrong account.
var ErrInviteInvalid = errors.New("invite cannot be redeemed")

// Invites go stale after two weeks.
const inviteTTL = 14 * 24 * time.Hour

type InviteService struct {
	db         *pgxpool.Pool
	inviteRepo *repository.InviteRepository
	userRepo   *repository.UserRepository
}

func NewInviteService(
	db *pgxpool.Pool,
	inviteRepo *repository.InviteRepository,
	userRepo *repository.UserRepository,
) *InviteService {
	return &InviteService{db: db, inviteRepo: inviteRepo, userRepo: userRepo}
}

// CreateInvite mints a single-use link token for a coach to send out.
func (s *InviteService) CreateInvite(
	ctx context.Context,
	principal models.Principal,
	email string,
) (*models.CoachInvite, error) {
	if !principal.IsCoach {
		return nil, ErrForbidden
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidInput
	}

	token := uuid.NewString()
	return s.inviteRepo.Create(ctx, principal.ID, email, token, time.Now().Add(inviteTTL))
}

func (s *InviteService) ListInvites(ctx context.Context, principal models.Principal) ([]models.CoachInvite, error) {
	if !principal.IsCoach {
		return nil, ErrForbidden
	}
	return s.inviteRepo.ListByCoachID(ctx, principal.ID)
}

func (s *InviteService) DeleteInvite(ctx context.Context, principal models.Principal, inviteID int64) error {
	if !principal.IsCoach {
		return ErrForbidden
	}
	return s.inviteRepo.Delete(ctx, principal.ID, inviteID)
}

// InviteLanding is what the public invite page shows before the athlete
// signs in: who is inviting, and whether the link is still live.
type InviteLanding struct {
	CoachName *string `json:"coach_name"`
	Email     string  `json:"email"`
	Status    string  `json:"status"`
}

// GetInviteLanding resolves a token for the unauthenticated landing page.
// A pending invite past its expiry is reported as expired without
// mutating it; the flip happens on redeem.
func (s *InviteService) GetInviteLanding(ctx context.Context, token string) (*InviteLanding, error) {
	invite, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	status := invite.Status
	if status == models.InviteStatusPending && time.Now().After(invite.ExpiresAt) {
		status = models.InviteStatusExpired
	}

	coach, err := s.userRepo.GetByID(ctx, invite.CoachID)
	if err != nil {
		return nil, err
	}
	return &InviteLanding{CoachName: coach.FullName, Email: invite.Email, Status: status}, nil
}

// RedeemInvite consumes a pending invite and links the redeemer to the
// inviting coach. Coaches cannot be linked under another coach, and an
// athlete already linked elsewhere must unlink first.
func (s *InviteService) RedeemInvite(
	ctx context.Context,
	principal models.Principal,
	token string,
) (*models.CoachInvite, error) {
	if principal.IsCoach {
		return nil, ErrInvalidStateTransition
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	invites := repository.NewInviteRepository(tx)
	users := repository.NewUserRepository(tx)

	invite, err := invites.GetByTokenForUpdate(ctx, token)
	if err != nil {
		return nil, err
	}

	if invite.Status == models.InviteStatusPending && time.Now().After(invite.ExpiresAt) {
		if _, err := invites.UpdateStatusIfCurrent(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, ErrInviteInvalid
	}
	if invite.Status != models.InviteStatusPending {
		return nil, ErrInviteInvalid
	}

	redeemer, err := users.GetByIDForUpdate(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if redeemer.IsCoach {
		return nil, ErrInvalidStateTransition
	}
	// The invite names an email, not a bearer: a token forwarded to a
	// different account must not create the link.
	if !strings.EqualFold(redeemer.Email, invite.Email) {
		return nil, ErrInviteInvalid
	}
	if redeemer.CoachID != nil && *redeemer.CoachID != invite.CoachID {
		return nil, ErrInviteInvalid
	}

	accepted, err := invites.UpdateStatusIfCurrent(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusAccepted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if err := users.SetCoachLink(ctx, redeemer.ID, &invite.CoachID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return accepted, nil
}

// ListAthletes returns the coach's currently linked athletes.
func (s *InviteService) ListAthletes(ctx context.Context, principal models.Principal) ([]models.User, error) {
	if !principal.IsCoach {
		return nil, ErrForbidden
	}
	return s.userRepo.ListAthletesByCoachID(ctx, principal.ID)
}

// UnlinkAthlete detaches an athlete from the coach's roster. The athlete
// keeps their own data; only the link goes away.
func (s *InviteService) UnlinkAthlete(ctx context.Context, principal models.Principal, athleteID int64) error {
	if !principal.IsCoach {
		return ErrForbidden
	}

	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		return err
	}
	if !CanManageAthlete(principal, athlete) {
		return pgx.ErrNoRows
	}
	return s.userRepo.SetCoachLink(ctx, athleteID, nil)
}
