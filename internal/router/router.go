package router

import (
	"github.com/anonto42/bizgram/backend/internal/handlers"
	"github.com/anonto42/bizgram/backend/internal/jobs"
	"github.com/anonto42/bizgram/backend/internal/middleware"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/pkg/config"
	"github.com/anonto42/bizgram/backend/pkg/firebase"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/anonto42/bizgram/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Deps are the process-wide clients the routes are built from.
type Deps struct {
	Config   *config.Config
	DB       *config.DB
	Firebase *firebase.App // nil disables provider login and uploads
	Bus      notify.Bus
	Log      *zap.Logger
}

// Services are the background workers main starts next to the HTTP server.
type Services struct {
	Scheduler   *jobs.Scheduler
	RateLimiter *middleware.RateLimiter
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) (*Services, error) {
	log := d.Log
	cfg := d.Config

	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)
	e.Use(metrics.Middleware())
	e.Use(middleware.Session(middleware.NewSessionStore(cfg.SessionSecret, cfg.IsProduction())))
	log.Info("Global middleware configured.")

	handlers.NewHealthHandler(d.DB, log).RegisterHealthRoutes(e)

	// --- Initialize Repositories ---
	pgdb := d.DB.Postgres
	mgdb := d.DB.Mongo.Database(cfg.MongoDB)
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	profileRepo := repositories.NewPostgresProfileRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	threadRepo := repositories.NewPostgresThreadRepository(pgdb)
	savedRepo := repositories.NewPostgresSavedRepository(pgdb)
	opinionRepo := repositories.NewOpinionRepository(mgdb, pgdb)
	projectRepo := repositories.NewPostgresProjectRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	briefRepo := repositories.NewPostgresBriefRepository(pgdb)
	dashboardRepo := repositories.NewPostgresDashboardRepository(pgdb)
	reportRepo := repositories.NewPostgresReportRepository(pgdb)

	// --- Shared services ---
	var (
		verifier middleware.IDTokenVerifier
		store    handlers.ObjectStore
	)
	if d.Firebase != nil {
		verifier = d.Firebase.AuthClient
		if d.Firebase.Storage != nil {
			store = d.Firebase.Storage
		}
	}
	authenticator := middleware.NewAuthenticator(cfg.JWTSecret, verifier, userRepo, log)
	notifier := notify.NewNotifier(notificationRepo, d.Bus, log)
	bell := notify.NewBell(notificationRepo, threadRepo)
	profiles := handlers.NewProfileBootstrapper(userRepo, profileRepo)
	presenter := handlers.NewPostPresenter(profileRepo, likeRepo)
	limiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, log)

	// public routes resolve the caller when a token is present
	public := e.Group("/api/v1", authenticator.OptionalAuth())
	private := e.Group("/api/v1", authenticator.RequireAuth(), limiter.Middleware())
	docs := e.Group("/docs", authenticator.SessionAuth())
	log.Info("Authentication middleware applied to /api/v1 and /docs groups.")

	handlers.NewAuthHandler(userRepo, profiles, verifier, authenticator, log).RegisterAuthRoutes(public, private)
	log.Info("Auth routes configured.")

	handlers.NewProfileHandler(profileRepo, profiles, store, log).RegisterProfileRoutes(public, private)
	log.Info("Profile routes configured.")

	handlers.NewPostHandler(postRepo, likeRepo, commentRepo, profiles, presenter, log).RegisterPostRoutes(public, private)
	log.Info("Post routes configured.")

	handlers.NewFeedHandler(postRepo, profileRepo, followRepo, likeRepo, presenter, log).RegisterFeedRoutes(public, private)
	log.Info("Feed routes configured.")

	handlers.NewCommentHandler(commentRepo, postRepo, profileRepo, notifier, log).RegisterCommentRoutes(public, private)
	log.Info("Comment routes configured.")

	handlers.NewFollowHandler(followRepo, profileRepo, notifier, log).RegisterFollowRoutes(public, private)
	log.Info("Follow routes configured.")

	handlers.NewDMHandler(threadRepo, userRepo, profileRepo, postRepo, notificationRepo, presenter, notifier, log).RegisterDMRoutes(private)
	log.Info("Message routes configured.")

	handlers.NewSavedHandler(savedRepo, postRepo, profileRepo, presenter, log).RegisterSavedRoutes(private)
	log.Info("Saved list routes configured.")

	handlers.NewOpinionHandler(opinionRepo, log).RegisterOpinionRoutes(public, private)
	log.Info("Opinion routes configured.")

	handlers.NewProjectHandler(projectRepo, profileRepo, userRepo, notifier, log).RegisterProjectRoutes(private, docs)
	log.Info("Project routes configured.")

	handlers.NewNotificationHandler(notificationRepo, bell, d.Bus, log).RegisterNotificationRoutes(private)
	log.Info("Notification routes configured.")

	handlers.NewSearchHandler(profileRepo, postRepo, followRepo, presenter, log).RegisterSearchRoutes(public)
	log.Info("Search routes configured.")

	handlers.NewStorageHandler(store, log).RegisterStorageRoutes(private)
	handlers.NewBriefHandler(briefRepo, profileRepo, notifier, log).RegisterBriefRoutes(private)
	handlers.NewDashboardHandler(dashboardRepo, projectRepo, log).RegisterDashboardRoutes(private)
	handlers.NewReportHandler(reportRepo, log).RegisterReportRoutes(private)
	log.Info("Storage, brief, dashboard and report routes configured.")

	scheduler := jobs.NewScheduler(opinionRepo, notificationRepo, log)
	if err := scheduler.Register(cfg.RescoreCron); err != nil {
		return nil, err
	}
	return &Services{Scheduler: scheduler, RateLimiter: limiter}, nil
}
