package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

const sentryFlushTimeout = 2 * time.Second

// SentryConfig configures error reporting. Reporting stays off unless
// Enabled is set and DSN is non-empty.
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64 // 0 means 1.0
	TracesSampleRate float64
	Debug            bool
}

var sentryEnabled atomic.Bool

// InitSentry starts the Sentry client. The returned func flushes pending
// events and must run before exit.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	sentryEnabled.Store(false)
	noop := func() {}

	switch {
	case !cfg.Enabled:
		logger.Info("error reporting disabled")
		return noop, nil
	case cfg.DSN == "":
		logger.Warn("error reporting enabled without a DSN, leaving it off")
		return noop, nil
	}

	rate := cfg.SampleRate
	if rate == 0 {
		rate = 1.0
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("error reporting enabled",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", rate,
	)
	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

// IsEnabled reports whether InitSentry started a client.
func IsEnabled() bool {
	return sentryEnabled.Load()
}

// CaptureError reports err with extras. No-op when reporting is off.
func CaptureError(err error, extras map[string]any) {
	if !IsEnabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtras(extras)
		sentry.CaptureException(err)
	})
}

// CaptureEventError reports a webhook processing failure tagged with the
// gateway event id and type. The request's hub is used when ctx has one.
func CaptureEventError(ctx context.Context, err error, eventID, eventType string, extras map[string]any) {
	if !IsEnabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("event_id", eventID)
		scope.SetTag("event_type", eventType)
		scope.SetExtras(extras)
		hub.CaptureException(err)
	})
}

// SentryMiddleware attaches a per-request hub so events captured while
// serving carry the request. Panics that reach it are reported and
// re-raised.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !IsEnabled() {
			return next
		}
		return sentryhttp.New(sentryhttp.Options{
			Repanic: true,
			Timeout: sentryFlushTimeout,
		}).Handle(next)
	}
}
