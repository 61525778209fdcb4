// Package bootstrap wires the engine's stores, gateway and services from
// configuration. Both the server and the operator CLI start from here.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chicsouqsa-collab/Spay-sub001/internal"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/event"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/modifier"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/postgres"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// Options controls what Open starts.
type Options struct {
	// Migrate applies pending migrations before the pool opens.
	Migrate bool

	// Registerer receives the business metrics. Nil uses the default
	// registerer.
	Registerer prometheus.Registerer

	// ClientName identifies this process to NATS.
	ClientName string
}

// App holds the wired components. Close releases them.
type App struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Gateway *billing.StripeGateway
	Metrics *telemetry.BusinessMetrics

	Orders        *postgres.OrderRepo
	WebhookEvents *postgres.WebhookEventRepo

	Subscriptions *service.SubscriptionService
	Refunds       *service.RefundService
	Dispatcher    *event.Dispatcher

	closers []func()
}

// Open connects to the database and the gateway and builds the services.
func Open(ctx context.Context, cfg *internal.Config, logger *slog.Logger, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	if opts.Migrate {
		if err := migrate(ctx, cfg.DatabaseUrl, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("Connecting to database...")
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{URL: cfg.DatabaseUrl})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	app.Pool = pool
	app.closers = append(app.closers, pool.Close)
	logger.Info("Database connection established")

	app.Metrics = telemetry.NewBusinessMetrics("subscriptions", opts.Registerer)

	gateway, err := billing.NewStripeGateway(billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		GatewayID:     cfg.Stripe.GatewayID,
	}, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize Stripe gateway: %w", err)
	}
	app.Gateway = gateway.WithCallObserver(app.Metrics.ObserveStripeCall)
	logger.Info("Stripe gateway initialized", "mode", gateway.Mode())

	loc := cfg.Location()
	db := postgres.NewDB(pool, logger)
	subs := postgres.NewSubscriptionRepo(pool, loc, logger)
	app.Orders = postgres.NewOrderRepo(pool, loc, logger)
	refunds := postgres.NewRefundRepo(pool, loc, logger)
	app.WebhookEvents = postgres.NewWebhookEventRepo(pool, cfg.WebhookClaimTimeout, logger)

	notifier := app.notifier(opts.ClientName)

	app.Subscriptions = service.NewSubscriptionService(service.Dependencies{
		Subscriptions: subs,
		Orders:        app.Orders,
		Gateway:       app.Gateway,
		Tx:            db,
		Calculator:    schedule.NewCalculator(nil),
		Tracker:       modifier.NewTracker(cfg.ModifierTTL),
		Notifier:      notifier,
		Metrics:       app.Metrics,
		Logger:        logger,
	})
	app.Refunds = service.NewRefundService(app.Orders, refunds, app.Gateway, db, notifier, app.Metrics, logger)

	app.Dispatcher = event.NewStripeDispatcher(event.Deps{
		Subscriptions: subs,
		Orders:        app.Orders,
		Renewals:      app.Orders,
		Refunds:       refunds,
		Lifecycle:     app.Subscriptions,
		Tx:            db,
		Notifier:      notifier,
		Metrics:       app.Metrics,
		GatewayID:     cfg.Stripe.GatewayID,
		Logger:        logger,
	})

	return app, nil
}

// notifier fans out to the log, the originating order's notes and, when
// configured, NATS. A NATS outage at startup only loses the NATS sink.
func (a *App) notifier(clientName string) notify.Notifier {
	sinks := notify.Multi{
		notify.NewLog(a.Logger),
		notify.NewOrderNotes(a.Orders, a.Logger),
	}
	if a.Config.NATS.URL == "" {
		return sinks
	}

	if clientName == "" {
		clientName = "subscriptions"
	}
	nc, err := notify.Connect(a.Config.NATS.URL, clientName, a.Logger)
	if err != nil {
		a.Logger.Warn("NATS unavailable, lifecycle events will not be published", "error", err)
		return sinks
	}
	a.closers = append(a.closers, func() {
		if err := nc.Drain(); err != nil {
			a.Logger.Warn("failed to drain NATS connection", "error", err)
		}
	})
	a.Logger.Info("Publishing lifecycle events to NATS", "subject_prefix", a.Config.NATS.SubjectPrefix)
	return append(sinks, notify.NewNATSNotifier(nc, a.Config.NATS.SubjectPrefix, a.Logger))
}

// Ping checks the database.
func (a *App) Ping(ctx context.Context) error {
	return a.Pool.Ping(ctx)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func migrate(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
