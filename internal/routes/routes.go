package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/velolift/VeloLiftBack/internal/billing"
	"github.com/velolift/VeloLiftBack/internal/config"
	"github.com/velolift/VeloLiftBack/internal/handlers"
	"github.com/velolift/VeloLiftBack/internal/metrics"
	"github.com/velolift/VeloLiftBack/internal/middleware"
	"github.com/velolift/VeloLiftBack/internal/repository"
	"github.com/velolift/VeloLiftBack/internal/services"
	livews "github.com/velolift/VeloLiftBack/internal/websocket"
)

func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	log *logrus.Logger,
	m *metrics.Manager,
) error {
	userRepo := repository.NewUserRepository(db)
	workoutRepo := repository.NewWorkoutRepository(db)
	setRepo := repository.NewSetRepository(db)
	repRepo := repository.NewRepRepository(db)
	programRepo := repository.NewProgramRepository(db)
	dayRepo := repository.NewProgramDayRepository(db)
	exerciseRepo := repository.NewProgramExerciseRepository(db)
	logRepo := repository.NewProgramLogRepository(db)
	inviteRepo := repository.NewInviteRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	liveHub := livews.NewHub(m)
	go liveHub.Run()

	workoutService := services.NewWorkoutService(db, workoutRepo, setRepo, repRepo, userRepo, liveHub)
	programService := services.NewProgramService(db, programRepo, dayRepo, exerciseRepo, logRepo, setRepo, workoutRepo, userRepo, storageService)
	inviteService := services.NewInviteService(db, inviteRepo, userRepo)
	subscriptionService := services.NewSubscriptionService(
		userRepo,
		billing.NewClient(cfg.StripeSecretKey),
		cfg.AccessCode,
		cfg.CoachAccessCode,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	workoutHandler := handlers.NewWorkoutHandler(workoutService)
	programHandler := handlers.NewProgramHandler(programService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	billingHandler := handlers.NewBillingHandler(subscriptionService, cfg.StripeWebhookSecret, log, m)
	settingsHandler := handlers.NewSettingsHandler(userRepo)
	liveHandler := handlers.NewLiveHandler(liveHub, userRepo, cfg.JWTSecret)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Webhook and checkout confirmation stay public: the provider signs
	// the webhook, and the success redirect runs before login.
	billingPublic := api.Group("/billing")
	billingPublic.Post("/webhook", billingHandler.Webhook)
	billingPublic.Get("/checkout-session/:id", billingHandler.ConfirmCheckoutSession)

	api.Get("/invites/:token", inviteHandler.GetInviteLanding)

	authed := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret), middleware.LoadPrincipal(userRepo))

	authed.Get("/subscription", billingHandler.GetSubscription)
	authed.Post("/subscription/redeem-code", billingHandler.RedeemCode)
	authed.Get("/settings", settingsHandler.GetSettings)
	authed.Put("/settings", settingsHandler.UpdateSettings)
	authed.Post("/invites/redeem", inviteHandler.RedeemInvite)

	subscribed := authed.Group("", middleware.RequireSubscriber())

	workouts := subscribed.Group("/workouts")
	workouts.Post("", workoutHandler.StartWorkout)
	workouts.Get("", workoutHandler.ListWorkouts)
	workouts.Get("/:id", workoutHandler.GetWorkout)
	workouts.Post("/:id/complete", workoutHandler.CompleteWorkout)
	workouts.Delete("/:id", workoutHandler.DeleteWorkout)
	workouts.Post("/:id/sets", workoutHandler.AddSet)

	sets := subscribed.Group("/sets")
	sets.Delete("/:id", workoutHandler.DeleteSet)
	sets.Post("/:id/reps", workoutHandler.AddRep)

	subscribed.Delete("/reps/:id", workoutHandler.DeleteRep)

	programs := subscribed.Group("/programs")
	programs.Post("", programHandler.CreateProgram)
	programs.Get("", programHandler.ListPrograms)
	programs.Get("/:id", programHandler.GetProgram)
	programs.Put("/:id", programHandler.UpdateProgram)
	programs.Delete("/:id", programHandler.DeleteProgram)
	programs.Post("/:id/days", programHandler.AddDay)

	days := subscribed.Group("/days")
	days.Put("/:id", programHandler.RenameDay)
	days.Delete("/:id", programHandler.DeleteDay)
	days.Post("/:id/exercises", programHandler.AddExercise)

	exercises := subscribed.Group("/exercises")
	exercises.Put("/:id", programHandler.UpdateExercise)
	exercises.Delete("/:id", programHandler.DeleteExercise)
	exercises.Put("/:id/video", programHandler.SetExerciseVideo)
	exercises.Post("/:id/video", programHandler.UploadExerciseVideo)
	exercises.Post("/:id/logs", programHandler.LogSet)
	exercises.Get("/:id/logs", programHandler.ListLogs)

	subscribed.Delete("/logs/:id", programHandler.DeleteLog)

	coach := authed.Group("/coach", middleware.RequireCoach())
	coach.Get("/athletes", inviteHandler.ListAthletes)
	coach.Delete("/athletes/:id", inviteHandler.UnlinkAthlete)
	coach.Get("/athletes/:id/workouts", workoutHandler.ListAthleteWorkouts)
	coach.Post("/invites", inviteHandler.CreateInvite)
	coach.Get("/invites", inviteHandler.ListInvites)
	coach.Delete("/invites/:id", inviteHandler.DeleteInvite)

	api.Use("/v1/ws", liveHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(liveHandler.HandleWebSocket))

	return registerDocs(app, cfg)
}
