package routes

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/velolift/VeloLiftBack/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0 auto; max-width: 900px; padding: 32px 16px; font-family: Georgia, serif; color: #132019; }
    h1 { font-size: 1.6rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #d8ddd6; font-size: 0.95rem; }
    code { font-family: ui-monospace, monospace; background: #f0f2ef; padding: 1px 5px; border-radius: 4px; }
    .tag { color: #536258; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <p class="tag">Bearer-token API. Routes under /api/v1 require a login; tracker and program routes additionally require an active subscription.</p>
  <table>
    <tr><th>Method</th><th>Path</th><th>Purpose</th></tr>
    {{- range .Endpoints }}
    <tr><td>{{ .Method }}</td><td><code>{{ .Path }}</code></td><td>{{ .Purpose }}</td></tr>
    {{- end }}
  </table>
</body>
</html>`

type docsEndpoint struct {
	Method  string
	Path    string
	Purpose string
}

var docsEndpoints = []docsEndpoint{
	{"POST", "/api/auth/register", "Create an account"},
	{"POST", "/api/auth/login", "Exchange credentials for a token"},
	{"GET", "/api/auth/me", "Current account"},
	{"POST", "/api/billing/webhook", "Payment provider webhook"},
	{"GET", "/api/billing/checkout-session/:id", "Confirm a checkout after redirect"},
	{"GET", "/api/invites/:token", "Invite landing page data"},
	{"GET", "/api/v1/subscription", "Subscription state"},
	{"POST", "/api/v1/subscription/redeem-code", "Redeem an access code"},
	{"GET", "/api/v1/settings", "Account settings"},
	{"PUT", "/api/v1/settings", "Update account settings"},
	{"POST", "/api/v1/invites/redeem", "Accept a coach invite"},
	{"POST", "/api/v1/workouts", "Start a workout"},
	{"GET", "/api/v1/workouts", "List own workouts"},
	{"GET", "/api/v1/workouts/:id", "Workout with sets and reps"},
	{"POST", "/api/v1/workouts/:id/complete", "Finish a workout"},
	{"DELETE", "/api/v1/workouts/:id", "Delete a workout"},
	{"POST", "/api/v1/workouts/:id/sets", "Add a set"},
	{"DELETE", "/api/v1/sets/:id", "Delete a set"},
	{"POST", "/api/v1/sets/:id/reps", "Record a rep"},
	{"DELETE", "/api/v1/reps/:id", "Delete a rep"},
	{"POST", "/api/v1/programs", "Create a program"},
	{"GET", "/api/v1/programs", "List visible programs"},
	{"GET", "/api/v1/programs/:id", "Program with days and exercises"},
	{"PUT", "/api/v1/programs/:id", "Update a program"},
	{"DELETE", "/api/v1/programs/:id", "Delete a program"},
	{"POST", "/api/v1/programs/:id/days", "Add a day"},
	{"PUT", "/api/v1/days/:id", "Rename a day"},
	{"DELETE", "/api/v1/days/:id", "Delete a day"},
	{"POST", "/api/v1/days/:id/exercises", "Add an exercise"},
	{"PUT", "/api/v1/exercises/:id", "Update an exercise"},
	{"DELETE", "/api/v1/exercises/:id", "Delete an exercise"},
	{"PUT", "/api/v1/exercises/:id/video", "Set demo video URL (coach)"},
	{"POST", "/api/v1/exercises/:id/video", "Upload demo video (coach)"},
	{"POST", "/api/v1/exercises/:id/logs", "Log performed sets"},
	{"GET", "/api/v1/exercises/:id/logs", "List set logs"},
	{"DELETE", "/api/v1/logs/:id", "Delete a set log"},
	{"GET", "/api/v1/coach/athletes", "Linked athletes (coach)"},
	{"DELETE", "/api/v1/coach/athletes/:id", "Unlink an athlete (coach)"},
	{"GET", "/api/v1/coach/athletes/:id/workouts", "Athlete workout history (coach)"},
	{"POST", "/api/v1/coach/invites", "Create an invite (coach)"},
	{"GET", "/api/v1/coach/invites", "List invites (coach)"},
	{"DELETE", "/api/v1/coach/invites/:id", "Revoke an invite (coach)"},
	{"GET", "/api/v1/ws", "Live workout feed (websocket)"},
}

func registerDocs(app *fiber.App, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	tmpl, err := template.New("docs").Parse(docsIndexHTML)
	if err != nil {
		return err
	}
	var rendered bytes.Buffer
	err = tmpl.Execute(&rendered, struct {
		Title     string
		Endpoints []docsEndpoint
	}{
		Title:     "VeloLift API",
		Endpoints: docsEndpoints,
	})
	if err != nil {
		return err
	}
	page := rendered.Bytes()

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
		c.Set("X-Robots-Tag", "noindex, nofollow")
		return c.Status(fiber.StatusOK).Send(page)
	})
	return nil
}
