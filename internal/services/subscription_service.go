package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/velolift/VeloLiftBack/internal/billing"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

// ErrBillingUnavailable covers failures talking to the payment provider.
var ErrBillingUnavailable = errors.New("billing provider unavailable")

type billingClient interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error)
}

type SubscriptionService struct {
	userRepo   *repository.UserRepository
	billing    billingClient
	accessCode string
	coachCode  string
}

func NewSubscriptionService(
	userRepo *repository.UserRepository,
	client billingClient,
	accessCode, coachCode string,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:   userRepo,
		billing:    client,
		accessCode: accessCode,
		coachCode:  coachCode,
	}
}

// subscriptionTypeForInterval maps a provider billing interval to an
// internal subscription type. No interval means a one-time purchase.
func subscriptionTypeForInterval(interval string) string {
	switch interval {
	case "month":
		return models.SubscriptionMonthly
	case "year":
		return models.SubscriptionAnnual
	default:
		return models.SubscriptionLifetime
	}
}

// HandleCheckoutCompleted grants access to the buyer of a completed
// checkout. The buyer may not have registered yet, so the grant is keyed
// by email and upserted; replayed events land on the same row.
func (s *SubscriptionService) HandleCheckoutCompleted(ctx context.Context, session *billing.CheckoutSession) error {
	email, err := normalizeEmail(session.Email())
	if err != nil {
		return ErrInvalidInput
	}

	subscriptionType := models.SubscriptionLifetime
	if session.Subscription != "" {
		sub, err := s.billing.GetSubscription(ctx, session.Subscription)
		if err != nil {
			return ErrBillingUnavailable
		}
		subscriptionType = subscriptionTypeForInterval(sub.Interval())
	}

	var customerID *string
	if session.Customer != "" {
		customerID = &session.Customer
	}

	_, err = s.userRepo.UpsertSubscribed(ctx, email, subscriptionType, customerID)
	return err
}

// HandleSubscriptionDeleted revokes access when a recurring subscription
// ends. Unknown customers are ignored: the event may concern a buyer who
// never registered, or one already cleaned up.
func (s *SubscriptionService) HandleSubscriptionDeleted(ctx context.Context, sub *billing.Subscription) error {
	user, err := s.userRepo.GetByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.SubscriptionType != nil && *user.SubscriptionType == models.SubscriptionLifetime {
		return nil
	}
	endedAt := time.Now()
	return s.userRepo.UpdateSubscriptionState(ctx, user.ID, false, nil, &endedAt)
}

// HandleSubscriptionUpdated re-syncs access with the provider's view of a
// recurring subscription. Active and trialing keep access, anything else
// drops it.
func (s *SubscriptionService) HandleSubscriptionUpdated(ctx context.Context, sub *billing.Subscription) error {
	user, err := s.userRepo.GetByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.SubscriptionType != nil && *user.SubscriptionType == models.SubscriptionLifetime {
		return nil
	}

	switch sub.Status {
	case "active", "trialing":
		subscriptionType := subscriptionTypeForInterval(sub.Interval())
		return s.userRepo.UpdateSubscriptionState(ctx, user.ID, true, &subscriptionType, nil)
	default:
		endedAt := time.Now()
		return s.userRepo.UpdateSubscriptionState(ctx, user.ID, false, nil, &endedAt)
	}
}

// ConfirmCheckoutSession lets the success-page redirect confirm a purchase
// without waiting for the webhook to arrive. Only paid sessions grant
// access.
func (s *SubscriptionService) ConfirmCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutSession, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.billing.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, ErrBillingUnavailable
	}
	if session.PaymentStatus != "paid" {
		return session, nil
	}
	if err := s.HandleCheckoutCompleted(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RedeemCode exchanges an out-of-band access code for a grant: the access
// code unlocks a lifetime subscription, the coach code additionally makes
// the redeemer a coach.
func (s *SubscriptionService) RedeemCode(ctx context.Context, userID int64, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidInput
	}

	switch {
	case s.coachCode != "" && subtle.ConstantTimeCompare([]byte(code), []byte(s.coachCode)) == 1:
		if err := s.userRepo.PromoteToCoach(ctx, userID); err != nil {
			return nil, err
		}
	case s.accessCode != "" && subtle.ConstantTimeCompare([]byte(code), []byte(s.accessCode)) == 1:
		subscriptionType := models.SubscriptionLifetime
		if err := s.userRepo.UpdateSubscriptionState(ctx, userID, true, &subscriptionType, nil); err != nil {
			return nil, err
		}
	default:
		return nil, ErrForbidden
	}

	return s.userRepo.GetByID(ctx, userID)
}

// GetSubscription reports the caller's current subscription state.
func (s *SubscriptionService) GetSubscription(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Address), nil
}
