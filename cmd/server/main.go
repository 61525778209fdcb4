package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chicsouqsa-collab/Spay-sub001/internal"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/bootstrap"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/handler/webhook"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/routes"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry error tracking
	cleanupSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer cleanupSentry()

	app, err := bootstrap.Open(ctx, cfg, logger, bootstrap.Options{Migrate: true, ClientName: "subscriptions-server"})
	if err != nil {
		return err
	}
	defer app.Close()

	stripeHandler := webhook.NewStripeHandler(app.Gateway, app.WebhookEvents, app.Dispatcher, app.Metrics, logger, webhook.StripeWebhookConfig{
		Provider: cfg.Stripe.GatewayID,
	})
	logger.Info("Webhook processors registered", "event_types", len(app.Dispatcher.EventTypes()))

	// ==========================================================================
	// Routes
	// ==========================================================================

	metrics := middleware.NewMetrics("subscriptions", nil)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		middleware.Recover,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)

	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{StripeHandler: stripeHandler.HandleWebhook})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Metrics: promhttp.Handler(),
		Ready:   func(req *http.Request) error { return app.Ping(req.Context()) },
	})

	// ==========================================================================
	// Serve
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      middleware.DefaultTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
