package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/velolift/VeloLiftBack/internal/billing"
	"github.com/velolift/VeloLiftBack/internal/middleware"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/services"
)

const testWebhookSecret = "whsec_test"

type stubSubscriptionService struct {
	checkoutErr   error
	deletedErr    error
	updatedErr    error
	confirmResult *billing.CheckoutSession
	confirmErr    error
	redeemResult  *models.User
	redeemErr     error
	getResult     *models.User
	getErr        error

	lastSession   *billing.CheckoutSession
	lastSub       *billing.Subscription
	lastSessionID string
	lastUserID    int64
	lastCode      string
}

func (s *stubSubscriptionService) HandleCheckoutCompleted(_ context.Context, session *billing.CheckoutSession) error {
	s.lastSession = session
	return s.checkoutErr
}

func (s *stubSubscriptionService) HandleSubscriptionDeleted(_ context.Context, sub *billing.Subscription) error {
	s.lastSub = sub
	return s.deletedErr
}

func (s *stubSubscriptionService) HandleSubscriptionUpdated(_ context.Context, sub *billing.Subscription) error {
	s.lastSub = sub
	return s.updatedErr
}

func (s *stubSubscriptionService) ConfirmCheckoutSession(_ context.Context, sessionID string) (*billing.CheckoutSession, error) {
	s.lastSessionID = sessionID
	return s.confirmResult, s.confirmErr
}

func (s *stubSubscriptionService) RedeemCode(_ context.Context, userID int64, code string) (*models.User, error) {
	s.lastUserID = userID
	s.lastCode = code
	return s.redeemResult, s.redeemErr
}

func (s *stubSubscriptionService) GetSubscription(_ context.Context, userID int64) (*models.User, error) {
	s.lastUserID = userID
	return s.getResult, s.getErr
}

func newBillingTestApp(service *stubSubscriptionService) *fiber.App {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	handler := &BillingHandler{service: service, webhookSecret: testWebhookSecret, log: log}

	app := fiber.New()
	app.Post("/api/billing/webhook", handler.Webhook)
	app.Get("/api/billing/checkout-session/:id", handler.ConfirmCheckoutSession)
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.PrincipalKey, models.Principal{ID: 42})
		return c.Next()
	})
	app.Post("/api/v1/subscription/redeem-code", handler.RedeemCode)
	return app
}

func signedWebhookRequest(t *testing.T, payload string) *http.Request {
	t.Helper()

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp + "." + payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, signature))
	return req
}

func TestWebhookProcessesCheckoutCompleted(t *testing.T) {
	service := &stubSubscriptionService{}
	app := newBillingTestApp(service)

	payload := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"payment_status": "paid",
			"customer": "cus_1",
			"customer_details": {"email": "buyer@example.com"}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(t, payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSession == nil {
		t.Fatal("expected checkout session forwarded to service")
	}
	if service.lastSession.Email() != "buyer@example.com" {
		t.Fatalf("expected buyer email, got %q", service.lastSession.Email())
	}
	if service.lastSession.Customer != "cus_1" {
		t.Fatalf("expected customer id forwarded, got %q", service.lastSession.Customer)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	service := &stubSubscriptionService{}
	app := newBillingTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastSession != nil || service.lastSub != nil {
		t.Fatal("service must not be called for an unverified event")
	}
}

func TestWebhookAcknowledgesUnknownEvents(t *testing.T) {
	service := &stubSubscriptionService{}
	app := newBillingTestApp(service)

	payload := `{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`
	resp, err := app.Test(signedWebhookRequest(t, payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", resp.StatusCode)
	}
	if service.lastSession != nil || service.lastSub != nil {
		t.Fatal("unknown events must not reach the service")
	}
}

func TestWebhookForwardsSubscriptionDeleted(t *testing.T) {
	service := &stubSubscriptionService{}
	app := newBillingTestApp(service)

	payload := `{
		"id": "evt_3",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "status": "canceled", "customer": "cus_1"}}
	}`
	resp, err := app.Test(signedWebhookRequest(t, payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSub == nil || service.lastSub.Customer != "cus_1" {
		t.Fatalf("expected subscription forwarded, got %+v", service.lastSub)
	}
}

func TestConfirmCheckoutSessionReturnsPaymentStatus(t *testing.T) {
	service := &stubSubscriptionService{
		confirmResult: &billing.CheckoutSession{ID: "cs_9", PaymentStatus: "paid"},
	}
	app := newBillingTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/billing/checkout-session/cs_9", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSessionID != "cs_9" {
		t.Fatalf("expected session id forwarded, got %q", service.lastSessionID)
	}
}

func TestRedeemCodeMapsForbiddenToInvalidCode(t *testing.T) {
	service := &stubSubscriptionService{redeemErr: services.ErrForbidden}
	app := newBillingTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/redeem-code", strings.NewReader(`{"code": "guess"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 || service.lastCode != "guess" {
		t.Fatalf("unexpected redeem call: user %d code %q", service.lastUserID, service.lastCode)
	}
}
