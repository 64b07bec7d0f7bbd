package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/config"
	"github.com/PortNumber53/landing-intake/backend/internal/handlers"
	requesttracking "github.com/PortNumber53/landing-intake/backend/internal/middleware"
	stripeClient "github.com/PortNumber53/landing-intake/backend/internal/stripe"
	"github.com/PortNumber53/landing-intake/backend/internal/telegram"
)

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
	tracker    *requesttracking.RequestTracker
	logger     *zap.Logger
}

// NewIntakeHandler wires the Telegram and Stripe clients described by cfg.
func NewIntakeHandler(cfg config.Config, logger *zap.Logger) *handlers.IntakeHandler {
	notifier := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, telegram.WithBaseURL(cfg.TelegramAPIURL))
	checkout := stripeClient.NewClient(cfg.StripeSecretKey, cfg.StripeAPIURL)
	verifier := stripeClient.NewVerifier(cfg.StripeWebhookSecret)

	if !notifier.Configured() {
		logger.Warn("telegram is not configured; lead and payment notifications will fail")
	}
	if !checkout.Configured() {
		logger.Warn("stripe secret key is not configured; checkout sessions will fail")
	}
	if !verifier.Configured() {
		logger.Warn("stripe webhook secret is not configured; webhooks will be rejected")
	}

	return handlers.NewIntakeHandler(notifier, checkout, verifier, cfg.Offers, cfg.PublicSiteURL, cfg.NotifyLocation, logger)
}

// NewRouter builds the chi router serving the intake endpoints. tracker may be nil.
func NewRouter(intake *handlers.IntakeHandler, tracker *requesttracking.RequestTracker, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requesttracking.RequestLogger(logger))
	router.Use(middleware.Recoverer)

	if tracker != nil {
		router.Use(tracker.Middleware())
	}

	intake.RegisterRoutes(router)
	return router
}

// New constructs an HTTP server using the provided configuration and handlers.
func New(cfg config.Config, intake *handlers.IntakeHandler, tracker *requesttracking.RequestTracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      NewRouter(intake, tracker, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, tracker: tracker, logger: logger}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("backend starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and waits for pending request
// log writes.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.tracker != nil {
		if waitErr := s.tracker.Wait(ctx); waitErr != nil {
			s.logger.Warn("request log writes still pending at shutdown", zap.Error(waitErr))
		}
	}
	return err
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
