package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/config"
	"github.com/PortNumber53/landing-intake/backend/internal/httpserver"
	"github.com/PortNumber53/landing-intake/backend/internal/lambdaproxy"
	"github.com/PortNumber53/landing-intake/backend/internal/logging"
	requesttracking "github.com/PortNumber53/landing-intake/backend/internal/middleware"
	"github.com/PortNumber53/landing-intake/backend/internal/store"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("lambda cold start", zap.String("environment", cfg.Environment))

	// Migrations are applied with dbtool, never on cold start.
	var tracker *requesttracking.RequestTracker
	if cfg.DatabaseURL != "" {
		db, err := store.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Warn("request log unavailable", zap.Error(err))
		} else {
			requests, err := store.New(db)
			if err != nil {
				logger.Fatal("failed to create store", zap.Error(err))
			}
			tracker = requesttracking.NewRequestTracker(requests, logger)
		}
	}

	router := httpserver.NewRouter(httpserver.NewIntakeHandler(cfg, logger), tracker, logger)
	proxy := lambdaproxy.New(router, logger)

	if tracker == nil {
		lambda.Start(proxy.Handle)
		return
	}

	lambda.Start(func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := proxy.Handle(ctx, event)
		// The execution environment may freeze once we return.
		if waitErr := tracker.Wait(ctx); waitErr != nil {
			logger.Warn("request log write did not finish", zap.Error(waitErr))
		}
		return resp, err
	})
}
