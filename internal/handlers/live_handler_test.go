package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/pkg/utils"
)

const liveTestSecret = "live-test-secret"

type stubAccountLoader struct {
	user *models.User
	err  error
}

func (s *stubAccountLoader) GetByID(context.Context, int64) (*models.User, error) {
	return s.user, s.err
}

func newLiveTestApp(loader *stubAccountLoader) *fiber.App {
	handler := &LiveHandler{users: loader, jwtSecret: liveTestSecret}

	app := fiber.New()
	app.Use("/api/v1/ws", handler.WebSocketAuth)
	app.Get("/api/v1/ws", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func wsUpgradeRequest(t *testing.T, userID string) *http.Request {
	t.Helper()

	token, err := utils.GenerateToken(userID, "athlete", liveTestSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	return req
}

func TestWebSocketAuthBlocksLapsedAthlete(t *testing.T) {
	loader := &stubAccountLoader{user: &models.User{ID: 42}}
	app := newLiveTestApp(loader)

	resp, err := app.Test(wsUpgradeRequest(t, "42"))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for lapsed athlete, got %d", resp.StatusCode)
	}
}

func TestWebSocketAuthAdmitsSubscriberAndCoach(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
	}{
		{"subscriber", &models.User{ID: 42, Subscribed: true}},
		{"coach", &models.User{ID: 42, IsCoach: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newLiveTestApp(&stubAccountLoader{user: tc.user})

			resp, err := app.Test(wsUpgradeRequest(t, "42"))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
		})
	}
}

func TestWebSocketAuthRejectsBadToken(t *testing.T) {
	loader := &stubAccountLoader{user: &models.User{ID: 42, Subscribed: true}}
	app := newLiveTestApp(loader)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=not-a-token", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocketAuthRequiresUpgrade(t *testing.T) {
	loader := &stubAccountLoader{user: &models.User{ID: 42, Subscribed: true}}
	app := newLiveTestApp(loader)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
