package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/velolift/VeloLiftBack/internal/billing"
	"github.com/velolift/VeloLiftBack/internal/metrics"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/services"
)

type subscriptionApplicationService interface {
	HandleCheckoutCompleted(ctx context.Context, session *billing.CheckoutSession) error
	HandleSubscriptionDeleted(ctx context.Context, sub *billing.Subscription) error
	HandleSubscriptionUpdated(ctx context.Context, sub *billing.Subscription) error
	ConfirmCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutSession, error)
	RedeemCode(ctx context.Context, userID int64, code string) (*models.User, error)
	GetSubscription(ctx context.Context, userID int64) (*models.User, error)
}

type BillingHandler struct {
	service       subscriptionApplicationService
	webhookSecret string
	log           *logrus.Logger
	metrics       *metrics.Manager
}

func NewBillingHandler(
	service *services.SubscriptionService,
	webhookSecret string,
	log *logrus.Logger,
	m *metrics.Manager,
) *BillingHandler {
	return &BillingHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
		metrics:       m,
	}
}

type redeemCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Webhook ingests provider events. Unknown event types are acknowledged
// without action so the provider stops retrying them.
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	event, err := billing.ConstructEvent(payload, signature, h.webhookSecret)
	if err != nil {
		h.log.WithError(err).Warn("rejected billing webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook payload"})
	}

	if h.metrics != nil {
		h.metrics.CounterWebhookEvents.WithLabelValues(event.Type).Inc()
	}
	log := h.log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})

	switch event.Type {
	case billing.EventCheckoutCompleted:
		var session billing.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			log.WithError(err).Warn("malformed checkout session payload")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
		}
		err = h.service.HandleCheckoutCompleted(c.Context(), &session)
	case billing.EventSubscriptionDeleted:
		var sub billing.Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			log.WithError(err).Warn("malformed subscription payload")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
		}
		err = h.service.HandleSubscriptionDeleted(c.Context(), &sub)
	case billing.EventSubscriptionUpdated:
		var sub billing.Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			log.WithError(err).Warn("malformed subscription payload")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
		}
		err = h.service.HandleSubscriptionUpdated(c.Context(), &sub)
	default:
		log.Debug("ignoring billing event")
		return c.JSON(fiber.Map{"received": true})
	}

	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			log.WithError(err).Warn("dropping unprocessable billing event")
			return c.JSON(fiber.Map{"received": true})
		}
		log.WithError(err).Error("failed to process billing event")
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process event"})
	}

	log.Info("processed billing event")
	return c.JSON(fiber.Map{"received": true})
}

// ConfirmCheckoutSession lets the post-payment redirect page poll the
// purchase state without waiting for the webhook.
func (h *BillingHandler) ConfirmCheckoutSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, err := h.service.ConfirmCheckoutSession(c.Context(), sessionID)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id":     session.ID,
		"payment_status": session.PaymentStatus,
	})
}

func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	user, err := h.service.GetSubscription(c.Context(), principal.ID)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(fiber.Map{
		"subscribed":            user.Subscribed,
		"subscription_type":     user.SubscriptionType,
		"subscription_end_date": user.SubscriptionEndDate,
	})
}

func (h *BillingHandler) RedeemCode(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req redeemCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := h.service.RedeemCode(c.Context(), principal.ID, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid code"})
		}
		return mapBillingError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func mapBillingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrBillingUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Billing provider unavailable"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process billing request"})
	}
}
