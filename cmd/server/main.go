package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PortNumber53/landing-intake/backend/internal/config"
	"github.com/PortNumber53/landing-intake/backend/internal/httpserver"
	"github.com/PortNumber53/landing-intake/backend/internal/logging"
	requesttracking "github.com/PortNumber53/landing-intake/backend/internal/middleware"
	"github.com/PortNumber53/landing-intake/backend/internal/migrations"
	"github.com/PortNumber53/landing-intake/backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Best-effort: load environment variables from .env-style files in local
	// development. These calls are safe to ignore in production environments.
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker, db, err := openRequestLog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up request log", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	srv := httpserver.New(cfg, httpserver.NewIntakeHandler(cfg, logger), tracker, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("backend stopped")
}

// openRequestLog connects the optional request log. Without DATABASE_URL the
// server runs with no tracker.
func openRequestLog(ctx context.Context, cfg config.Config, logger *zap.Logger) (*requesttracking.RequestTracker, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set; request log disabled")
		return nil, nil, nil
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("request log database", zap.String("target", store.DescribeDSN(cfg.DatabaseURL)))

	if err := runMigrationsWithDirtyFix(db, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	requests, err := store.New(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return requesttracking.NewRequestTracker(requests, logger), db, nil
}

func runMigrationsWithDirtyFix(db *sql.DB, logger *zap.Logger) error {
	err := migrations.Up(db, logger)
	if err == nil || !migrations.IsDirty(err) {
		return err
	}

	logger.Warn("migrations: dirty database detected, attempting to fix", zap.Error(err))
	if fixErr := migrations.FixDirtyDatabase(db); fixErr != nil {
		logger.Error("migrations: failed to fix dirty database", zap.Error(fixErr))
		return err
	}
	return migrations.Up(db, logger)
}
