// Package server contains HTTP and WebSocket handlers for the showcase API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "showcase/docs" // swagger docs
	"showcase/internal/cache"
	"showcase/internal/config"
	"showcase/internal/database"
	"showcase/internal/featureflags"
	"showcase/internal/middleware"
	"showcase/internal/models"
	"showcase/internal/notifications"
	"showcase/internal/repository"
	"showcase/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const requestsPerMinutePerIP = 100

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo     repository.UserRepository
	projectRepo  repository.ProjectRepository
	reviewRepo   repository.ReviewRepository
	catalogRepo  repository.CatalogRepository
	bookmarkRepo repository.BookmarkRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	moderationService *service.ModerationService
	reviewService     *service.ReviewService
	catalogService    *service.CatalogService
	bookmarkService   *service.BookmarkService
	adminService      *service.AdminService
	sweeper           *service.DeadlineSweeper

	now func() time.Time
}

// NewServer connects to the database and Redis and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, the sweep lease and notifications are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("showcase-api"),
		userRepo:       repository.NewUserRepository(db),
		projectRepo:    repository.NewProjectRepository(db),
		reviewRepo:     repository.NewReviewRepository(db),
		catalogRepo:    repository.NewCatalogRepository(db),
		bookmarkRepo:   repository.NewBookmarkRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		now:            func() time.Time { return time.Now().UTC() },
	}

	var publisher service.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}

	s.moderationService = service.NewModerationService(s.projectRepo, s.catalogRepo, publisher)
	s.reviewService = service.NewReviewService(
		s.reviewRepo,
		s.projectRepo,
		s.userRepo,
		service.NewRatingAggregator(s.projectRepo, s.reviewRepo),
		s.featureFlags,
		publisher,
		models.ReviewStatus(cfg.ReviewDefaultStatus),
	)
	s.catalogService = service.NewCatalogService(s.projectRepo, s.catalogRepo, s.featureFlags,
		time.Duration(cfg.ProjectCacheTTLSeconds)*time.Second)
	s.bookmarkService = service.NewBookmarkService(s.bookmarkRepo, s.projectRepo)
	s.adminService = service.NewAdminService(s.projectRepo, s.reviewRepo, s.userRepo)
	s.sweeper = service.NewDeadlineSweeper(s.projectRepo, publisher, redisClient,
		time.Duration(cfg.SweepLockTTLSeconds)*time.Second)

	return s, nil
}

// Sweeper exposes the deadline sweeper so cmd/server can schedule it.
func (s *Server) Sweeper() *service.DeadlineSweeper {
	return s.sweeper
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Per-IP ceiling for all traffic. Preflights and probes are exempt so a
	// busy browser tab cannot get its own CORS checks or the pod's health
	// checks rejected.
	app.Use(limiter.New(limiter.Config{
		Max:        requestsPerMinutePerIP,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public catalog
	api.Get("/categories", s.ListCategories)
	api.Get("/tags", s.ListTags)
	api.Get("/projects", s.ListProjects)
	api.Get("/projects/:slug/reviews", s.ListProjectReviews)
	api.Get("/projects/:slug", s.GetProject)

	protected := api.Group("", s.AuthRequired())

	protected.Post("/projects/:slug/reviews", middleware.RateLimit(s.redis, middleware.Quota{
		Name: "review", Max: s.reviewRateLimit(), Window: time.Hour,
	}), s.SubmitReview)
	protected.Post("/projects/:slug/bookmark", s.ToggleBookmark)

	me := protected.Group("/me")
	me.Get("/", s.GetMe)
	me.Get("/projects", s.ListMyProjects)
	me.Post("/projects", middleware.RateLimit(s.redis, middleware.Quota{
		Name: "submission", Max: 5, Window: time.Hour,
	}), s.SubmitProject)
	me.Get("/projects/:id", s.GetMyProject)
	me.Put("/projects/:id", s.EditProject)
	me.Get("/bookmarks", s.ListBookmarks)

	reviews := protected.Group("/reviews")
	reviews.Post("/:id/helpful", s.VoteHelpful)
	reviews.Post("/:id/report", s.ReportReview)
	reviews.Put("/:id", s.UpdateReview)
	reviews.Delete("/:id", s.DeleteReview)

	protected.Post("/ws/ticket", s.IssueWSTicket)
	protected.Get("/ws", s.WebsocketHandler())

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	admin.Get("/projects", s.ListProjectsForModeration)
	admin.Post("/projects/:id/approve", s.ApproveProject)
	admin.Post("/projects/:id/reject", s.RejectProject)
	admin.Post("/projects/:id/request-changes", s.RequestChanges)
	admin.Delete("/projects/:id", s.DeleteProject)

	admin.Get("/reviews", s.ListReviewsForModeration)
	admin.Put("/reviews/:id/status", s.SetReviewStatus)
	admin.Delete("/reviews/:id", s.DeleteReview)

	admin.Get("/deadline-check", s.GetDeadlineStats)
	admin.Post("/deadline-check", s.RunDeadlineSweep)

	admin.Get("/users", s.ListUsers)
	admin.Put("/users/:id/role", s.SetUserRole)
}

func (s *Server) reviewRateLimit() int {
	if s.config.ReviewRateLimit > 0 {
		return s.config.ReviewRateLimit
	}
	return 10
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: the API degrades to uncached, single-instance sweeps without it.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Project Showcase API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the notification hub and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				slog.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()))
			}
		}()
	}

	slog.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			slog.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
