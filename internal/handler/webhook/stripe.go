// Package webhook receives gateway webhooks and hands them to the event
// processors.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/event"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/handler"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// SignatureHeader carries the gateway's signature over the raw body.
const SignatureHeader = "Stripe-Signature"

// DefaultMaxBodyBytes bounds webhook payloads. Gateway events are far
// smaller; anything larger is rejected before parsing.
const DefaultMaxBodyBytes int64 = 512 * 1024

// Verifier checks a webhook signature. Satisfied by billing.Gateway.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, signature string) error
}

// Dispatcher processes a parsed event. Satisfied by *event.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *event.Envelope) (*event.Response, error)
}

// StripeWebhookConfig contains configuration for Stripe webhook handling.
type StripeWebhookConfig struct {
	// Provider names the gateway in the processed-event store.
	// Default: "stripe"
	Provider string

	// MaxBodyBytes bounds the request body. Default: DefaultMaxBodyBytes
	MaxBodyBytes int64
}

// StripeHandler handles Stripe webhook events.
type StripeHandler struct {
	verifier   Verifier
	events     domain.WebhookEventStore
	dispatcher Dispatcher
	metrics    *telemetry.BusinessMetrics
	logger     *slog.Logger
	config     StripeWebhookConfig
}

// NewStripeHandler creates a new Stripe webhook handler. metrics may be nil.
func NewStripeHandler(verifier Verifier, events domain.WebhookEventStore, dispatcher Dispatcher, metrics *telemetry.BusinessMetrics, logger *slog.Logger, config StripeWebhookConfig) *StripeHandler {
	if config.Provider == "" {
		config.Provider = event.DefaultGatewayID
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		verifier:   verifier,
		events:     events,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		config:     config,
	}
}

// HandleWebhook verifies, deduplicates and processes one delivery.
//
// The response tells the gateway whether to redeliver: 2xx once the event
// is acknowledged (processed, irrelevant or already seen), 5xx when
// processing failed and a retry may succeed, 4xx for requests that will
// never verify.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:8080/webhooks/stripe
//	stripe trigger invoice.paid
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logger := middleware.GetLogger(ctx, h.logger)

	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.receive", "Method not allowed"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.failed("", "payload")
			handler.ErrorResponse(w, r, domain.Invalid("webhook.receive", "Request body too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook.receive", "Error reading request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		h.failed("", "signature")
		handler.ErrorResponse(w, r, domain.Invalid("webhook.receive", "Missing signature"))
		return
	}
	if err := h.verifier.VerifyWebhookSignature(payload, signature); err != nil {
		logger.Warn("webhook signature verification failed", "error", err, "payload_bytes", len(payload))
		h.failed("", "signature")
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook.receive", "Invalid signature"))
		return
	}

	env, err := event.ParseEnvelope(payload)
	if err != nil {
		h.failed("", "payload")
		handler.ErrorResponse(w, r, err)
		return
	}

	logger = logger.With("event_id", env.ID(), "event_type", env.Type(), "mode", env.Mode())
	ctx = middleware.WithLogger(ctx, logger)

	if h.metrics != nil {
		h.metrics.WebhookReceived.WithLabelValues(env.Type(), string(env.Mode())).Inc()
		defer func() {
			h.metrics.WebhookLatency.WithLabelValues(env.Type()).Observe(time.Since(start).Seconds())
		}()
	}

	claimed, attempts, err := h.events.Claim(ctx, domain.WebhookClaim{
		Provider:  h.config.Provider,
		EventID:   env.ID(),
		EventType: env.Type(),
		Livemode:  env.Livemode(),
	})
	if err != nil {
		h.failed(env.Type(), "claim")
		handler.ErrorResponse(w, r, err)
		return
	}
	if !claimed {
		logger.Info("duplicate webhook acknowledged")
		if h.metrics != nil {
			h.metrics.WebhookDuplicates.WithLabelValues(env.Type()).Inc()
		}
		received(w)
		return
	}

	resp, procErr := h.dispatcher.Dispatch(ctx, env)
	if resp == nil {
		resp = event.NewResponse(env, domain.SourceUnknown)
	}
	if !resp.Finalized() {
		resp.Finalize(domain.RequestError, domain.ErrorMessage(procErr))
	}

	// Detached so a client disconnect cannot strand the event in processing.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.events.Complete(storeCtx, h.config.Provider, env.ID(), resp.Result()); err != nil {
		logger.Error("failed to record webhook outcome", "error", err)
		telemetry.CaptureEventError(ctx, err, env.ID(), env.Type(), nil)
		h.failed(env.Type(), "claim")
		handler.ErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.WebhookProcessed.WithLabelValues(env.Type(), string(resp.SourceType), string(resp.Status)).Inc()
	}

	attrs := []any{
		"source_type", resp.SourceType,
		"source_id", resp.SourceID,
		"request_status", resp.Status,
		"attempts", attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	}

	if !resp.Acknowledged() {
		logger.Error("webhook processing failed", append(attrs, "error", procErr)...)
		telemetry.CaptureEventError(ctx, procErr, env.ID(), env.Type(), map[string]interface{}{
			"source_type": resp.SourceType,
			"source_id":   resp.SourceID,
			"attempts":    attempts,
		})
		h.failed(env.Type(), "processing")
		handler.ErrorResponse(w, r, domain.Internal(procErr, "webhook.process", "webhook processing failed"))
		return
	}

	if resp.Status == domain.RequestSucceeded {
		logger.Info("webhook processed", attrs...)
	} else {
		logger.Info("webhook acknowledged without changes", append(attrs, "message", resp.Message)...)
	}
	received(w)
}

func (h *StripeHandler) failed(eventType, reason string) {
	if h.metrics != nil {
		h.metrics.WebhookFailed.WithLabelValues(eventType, reason).Inc()
	}
}

func received(w http.ResponseWriter) {
	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
