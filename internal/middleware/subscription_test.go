package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/models"
)

type stubUserLoader struct {
	user *models.User
	err  error
}

func (s *stubUserLoader) GetByID(context.Context, int64) (*models.User, error) {
	return s.user, s.err
}

func newGatedApp(loader UserLoader, gate fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Use(LoadPrincipal(loader), gate)
	app.Get("/guarded", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestRequireSubscriberBlocksLapsedAthlete(t *testing.T) {
	loader := &stubUserLoader{user: &models.User{ID: 42}}
	app := newGatedApp(loader, RequireSubscriber())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for lapsed athlete, got %d", resp.StatusCode)
	}
}

func TestRequireSubscriberAdmitsSubscriberAndCoach(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
	}{
		{"subscriber", &models.User{ID: 42, Subscribed: true}},
		{"unsubscribed coach", &models.User{ID: 42, IsCoach: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newGatedApp(&stubUserLoader{user: tc.user}, RequireSubscriber())

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil))
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

func TestRequireCoachRejectsAthlete(t *testing.T) {
	loader := &stubUserLoader{user: &models.User{ID: 42, Subscribed: true}}
	app := newGatedApp(loader, RequireCoach())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-coach, got %d", resp.StatusCode)
	}
}

func TestLoadPrincipalRejectsUnknownUser(t *testing.T) {
	loader := &stubUserLoader{err: context.DeadlineExceeded}
	app := newGatedApp(loader, RequireSubscriber())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 when the account cannot be loaded, got %d", resp.StatusCode)
	}
}
