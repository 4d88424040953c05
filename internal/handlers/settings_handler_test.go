package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/middleware"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

type stubSettingsStore struct {
	getResult    *models.User
	getErr       error
	updateResult *models.User
	updateErr    error

	lastUserID int64
	lastInput  repository.UpdateSettingsInput
}

func (s *stubSettingsStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.lastUserID = id
	return s.getResult, s.getErr
}

func (s *stubSettingsStore) UpdateSettings(_ context.Context, userID int64, input repository.UpdateSettingsInput) (*models.User, error) {
	s.lastUserID = userID
	s.lastInput = input
	return s.updateResult, s.updateErr
}

func newSettingsTestApp(store *stubSettingsStore) *fiber.App {
	handler := &SettingsHandler{userRepo: store}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.PrincipalKey, models.Principal{ID: 42})
		return c.Next()
	})
	app.Get("/api/v1/settings", handler.GetSettings)
	app.Put("/api/v1/settings", handler.UpdateSettings)
	return app
}

func TestUpdateSettingsAcceptsWeightUnits(t *testing.T) {
	for _, unit := range []string{"lbs", "kg"} {
		t.Run(unit, func(t *testing.T) {
			store := &stubSettingsStore{updateResult: &models.User{ID: 42}}
			app := newSettingsTestApp(store)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/settings",
				strings.NewReader(`{"unit_preference": "`+unit+`"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200 for unit %q, got %d", unit, resp.StatusCode)
			}
			if store.lastInput.UnitPreference == nil || *store.lastInput.UnitPreference != unit {
				t.Fatalf("expected unit %q forwarded, got %v", unit, store.lastInput.UnitPreference)
			}
		})
	}
}

func TestUpdateSettingsRejectsUnknownUnit(t *testing.T) {
	store := &stubSettingsStore{}
	app := newSettingsTestApp(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"unit_preference": "stone"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if store.lastUserID != 0 {
		t.Fatal("store must not be reached for an invalid unit")
	}
}

func TestUpdateSettingsRejectsNonPositiveHeight(t *testing.T) {
	store := &stubSettingsStore{}
	app := newSettingsTestApp(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"height_inches": -60}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
