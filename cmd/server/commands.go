package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/bizgram/backend/internal/jobs"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/router"
	"github.com/anonto42/bizgram/backend/pkg/config"
	"github.com/anonto42/bizgram/backend/pkg/firebase"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// bootstrap loads the configuration, the logger and the databases.
func bootstrap() (*config.Config, *zap.Logger, *config.DB, error) {
	cfg := config.Load()
	log, err := config.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	db, err := config.InitDB(cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}
	return cfg, log, db, nil
}

func migrate(ctx context.Context, cfg *config.Config, db *config.DB, log *zap.Logger) error {
	if err := db.Postgres.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed for all models.")

	mgdb := db.Mongo.Database(cfg.MongoDB)
	if err := repositories.NewMongoPostRepository(mgdb).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("post indexes: %w", err)
	}
	if err := repositories.NewOpinionRepository(mgdb, db.Postgres).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("opinion indexes: %w", err)
	}
	log.Info("MongoDB indexes ensured.")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.CloseDB()
	return migrate(cmd.Context(), cfg, db, log)
}

func runRescore(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.CloseDB()

	opinions := repositories.NewOpinionRepository(db.Mongo.Database(cfg.MongoDB), db.Postgres)
	mutes := repositories.NewPostgresNotificationRepository(db.Postgres)
	n, err := jobs.NewScheduler(opinions, mutes, log).Rescore(cmd.Context())
	if err != nil {
		return err
	}
	log.Info("opinions rescored", zap.Int("count", n))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if autoMigrate {
		if err := migrate(ctx, cfg, db, log); err != nil {
			return err
		}
	}

	fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket, log)
	if err != nil {
		if cfg.IsProduction() {
			return fmt.Errorf("failed to initialize Firebase: %w", err)
		}
		log.Warn("Firebase disabled, provider login and uploads are unavailable", zap.Error(err))
		fb = nil
	}

	rdb, err := config.InitRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	var bus notify.Bus
	if rdb != nil {
		defer rdb.Close()
		bus = notify.NewRedisBus(rdb, log)
		log.Info("Notification bus: redis")
	} else {
		bus = notify.NewMemoryBus()
		log.Info("Notification bus: in-process")
	}

	e := echo.New()
	e.HideBanner = true
	services, err := router.SetupRoutes(e, router.Deps{
		Config:   cfg,
		DB:       db,
		Firebase: fb,
		Bus:      bus,
		Log:      log,
	})
	if err != nil {
		return err
	}

	services.Scheduler.Start()
	go services.RateLimiter.RunCleanup(ctx, time.Minute)
	go metrics.Serve(ctx, cfg.MetricsPort, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	services.Scheduler.Stop(shutdownCtx)
	return e.Shutdown(shutdownCtx)
}
