package routes

import (
	"time"

	"cmcs-claims/internal/adapters/http/handlers"
	"cmcs-claims/internal/adapters/http/middleware"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/adapters/report"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces the routes are built on
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *logrus.Entry
	Redis     *redis.Client // nil when sessions are kept in process
	Sessions  services.SessionStore
	Documents services.DocumentStore
	Cron      *services.CronService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Deps) {
	cfg := deps.Config

	// Initialize repositories
	userRepo := repositories.NewUserRepository(deps.DB)
	claimRepo := repositories.NewClaimRepository(deps.DB)
	eventRepo := repositories.NewClaimEventRepository(deps.DB)

	// Initialize services
	authService := services.NewAuthService(userRepo, deps.Sessions, cfg, deps.Log)
	userService := services.NewUserService(userRepo, nil, deps.Log)
	claimService := services.NewClaimService(claimRepo, eventRepo, userRepo, deps.Documents, cfg.Claims.MaxMonthlyHours, deps.Log)
	reportService := services.NewReportService(claimRepo, userRepo, deps.Log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, deps.Redis)
	authHandler := handlers.NewAuthHandler(authService, cfg, deps.Log)
	userHandler := handlers.NewUserHandler(userService, deps.Log)
	claimHandler := handlers.NewClaimHandler(claimService, cfg, deps.Log)
	reviewHandler := handlers.NewReviewHandler(claimService, deps.Log)
	reportHandler := handlers.NewReportHandler(reportService, deps.Cron, deps.Log,
		report.NewPDFRenderer(),
		report.NewXLSXRenderer(),
	)

	auth := middleware.AuthMiddleware(authService, cfg, deps.Log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.NoCacheHeaders())
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes
	setupAuthRoutes(apiV1.Group("/auth"), authHandler, auth)

	// Claim routes (every authenticated user)
	setupClaimRoutes(apiV1.Group("/claims", auth), claimHandler)

	// Review stages
	setupReviewRoutes(apiV1.Group("/coordinator/claims", auth, middleware.CoordinatorOrHR()), reviewHandler, domain.RoleCoordinator)
	setupReviewRoutes(apiV1.Group("/manager/claims", auth, middleware.ManagerOrHR()), reviewHandler, domain.RoleManager)

	// HR routes
	hrRoutes := apiV1.Group("/hr", auth, middleware.HROnly())
	setupUserRoutes(hrRoutes.Group("/users"), userHandler)
	setupReportRoutes(hrRoutes.Group("/reports"), reportHandler)
	hrRoutes.Post("/maintenance/document-sweep", middleware.StrictRateLimiter(), reportHandler.SweepDocuments)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, auth fiber.Handler) {
	// Public routes
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", auth, handler.Me)
}

// setupClaimRoutes configures claim routes
func setupClaimRoutes(router fiber.Router, handler *handlers.ClaimHandler) {
	router.Get("/", handler.List)
	router.Post("/", middleware.LecturerOnly(), handler.Submit)
	router.Get("/:id", handler.Get)
	router.Get("/:id/history", handler.History)
	router.Get("/:id/document", handler.Document)
	router.Delete("/:id", handler.Delete)
}

// setupReviewRoutes configures one review stage
func setupReviewRoutes(router fiber.Router, handler *handlers.ReviewHandler, stage domain.Role) {
	router.Get("/", handler.Queue(stage))
	router.Put("/:id/approve", handler.Approve)
	router.Put("/:id/reject", handler.Reject)
}

// setupUserRoutes configures user management routes (HR only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Post("/", handler.CreateUser)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Put("/:id/deactivate", handler.DeactivateUser)
	router.Put("/:id/activate", handler.ActivateUser)
}

// setupReportRoutes configures reporting routes (HR only)
func setupReportRoutes(router fiber.Router, handler *handlers.ReportHandler) {
	router.Get("/overview", middleware.PrivateCacheHeaders(time.Minute), handler.Overview)
	router.Get("/summary", middleware.PrivateCacheHeaders(time.Minute), handler.Summaries)
	router.Get("/:month/claims", handler.MonthClaims)
	router.Get("/:month/invoice.pdf", handler.Invoice("pdf"))
	router.Get("/:month/invoice.xlsx", handler.Invoice("xlsx"))
}
