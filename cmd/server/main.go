package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cmcs-claims/internal/adapters/http/middleware"
	"cmcs-claims/internal/adapters/http/routes"
	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/adapters/session"
	"cmcs-claims/internal/adapters/storage"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	_ "cmcs-claims/docs" // Swagger docs
)

// @title Contract Monthly Claim System API
// @version 1.0
// @description Lecturer monthly claims with coordinator and manager approval, HR administration and invoice reports.

// @contact.name API Support

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token. Browsers use the session cookie instead.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	root := logger.New(cfg.AppMode)
	log := logger.Component(root, "server")

	// Connect to database
	db, err := config.ConnectDatabase(cfg, logger.Component(root, "database"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}
	log.Info("Database migration completed")

	if err := config.NewSeeder(db, cfg, logger.Component(root, "seeder")).Run(); err != nil {
		log.WithError(err).Warn("Seeding failed")
	}

	// Session store: Redis when configured, in process otherwise
	rdb, err := config.ConnectRedis(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	var (
		sessions services.SessionStore
		purger   services.SessionPurger
	)
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
		log.Info("Sessions stored in redis")
	} else {
		mem := session.NewMemoryStore()
		sessions, purger = mem, mem
		log.Warn("REDIS_URL not set, sessions are kept in process and lost on restart")
	}

	documents, err := storage.NewLocalStore(cfg.Storage.DocumentDir, logger.Component(root, "document-store"))
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	// Start Cron Service for the orphaned document sweep
	cronService := services.NewCronService(
		repositories.NewClaimRepository(db),
		documents,
		purger,
		services.SweepOptions{
			Spec:   cfg.Sweep.Cron,
			Grace:  time.Duration(cfg.Sweep.GraceHours) * time.Hour,
			Remove: cfg.Sweep.Remove,
		},
		logrus.NewEntry(root),
	)
	if err := cronService.Start(); err != nil {
		log.Fatalf("Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Contract Monthly Claim System API v1.0",
		ErrorHandler: middleware.ErrorHandler(logger.Component(root, "http")),
		BodyLimit:    int(cfg.MaxUploadBytes()) + 1024*1024,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, routes.Deps{
		DB:        db,
		Config:    cfg,
		Log:       logrus.NewEntry(root),
		Redis:     rdb,
		Sessions:  sessions,
		Documents: documents,
		Cron:      cronService,
	})

	// Graceful shutdown
	go gracefulShutdown(app, log)

	// Start server
	log.WithField("mode", cfg.AppMode).Infof("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *logrus.Entry) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Error during shutdown")
	}
	log.Info("Server stopped gracefully")
}
