package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/velolift/VeloLiftBack/internal/config"
	"github.com/velolift/VeloLiftBack/internal/database"
	"github.com/velolift/VeloLiftBack/internal/metrics"
	"github.com/velolift/VeloLiftBack/internal/routes"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.CloseDB()

	app := fiber.New(fiber.Config{
		BodyLimit: 60 << 20,
	})

	m := metrics.NewManager("velolift")

	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(metrics.RequestMetrics(m))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, database.DB, log, m); err != nil {
		log.WithError(err).Fatal("failed to register routes")
	}

	log.WithField("port", cfg.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server failed to start")
	}
}
