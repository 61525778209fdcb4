package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// DefaultClaimTimeout is how long a claimed event may stay in processing
// before another delivery may take it over.
const DefaultClaimTimeout = 5 * time.Minute

// WebhookEventRepo records processed gateway events.
type WebhookEventRepo struct {
	db           DBTX
	logger       *slog.Logger
	claimTimeout time.Duration
}

var _ domain.WebhookEventStore = (*WebhookEventRepo)(nil)

// NewWebhookEventRepo creates a WebhookEventRepo. A non-positive
// claimTimeout uses DefaultClaimTimeout.
func NewWebhookEventRepo(db DBTX, claimTimeout time.Duration, logger *slog.Logger) *WebhookEventRepo {
	if claimTimeout <= 0 {
		claimTimeout = DefaultClaimTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookEventRepo{db: db, logger: logger, claimTimeout: claimTimeout}
}

// Claim inserts the event in processing state. An existing row is taken
// over only when its last attempt failed or its claim went stale.
func (r *WebhookEventRepo) Claim(ctx context.Context, claim domain.WebhookClaim) (bool, int, error) {
	var attempts int
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO webhook_events (provider, event_id, event_type, livemode, request_status, attempts, received_at, claimed_at)
		 VALUES ($1, $2, $3, $4, 'processing', 1, NOW(), NOW())
		 ON CONFLICT (provider, event_id) DO UPDATE
		 SET attempts = webhook_events.attempts + 1,
		     request_status = 'processing',
		     error = NULL,
		     claimed_at = NOW()
		 WHERE webhook_events.request_status IN ('failed', 'error')
		    OR (webhook_events.request_status = 'processing'
		        AND webhook_events.claimed_at < NOW() - make_interval(secs => $5))
		 RETURNING attempts`,
		claim.Provider, claim.EventID, claim.EventType, claim.Livemode, r.claimTimeout.Seconds(),
	).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Info("webhook event already claimed",
			"provider", claim.Provider,
			"event_id", claim.EventID,
			"event_type", claim.EventType,
		)
		return false, 0, nil
	}
	if err != nil {
		return false, 0, domain.Internal(err, "webhook_event.claim", "failed to claim webhook event")
	}
	return true, attempts, nil
}

// Complete stores the outcome of a claimed event.
func (r *WebhookEventRepo) Complete(ctx context.Context, provider, eventID string, result domain.WebhookResult) error {
	var errText *string
	if result.Error != "" {
		errText = &result.Error
	}
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE webhook_events
		 SET request_status = $1, source_type = $2, source_id = $3, error = $4, processed_at = NOW()
		 WHERE provider = $5 AND event_id = $6`,
		string(result.Status), string(result.SourceType), result.SourceID, errText, provider, eventID)
	if err != nil {
		return domain.Internal(err, "webhook_event.complete", "failed to record webhook outcome")
	}
	if tag.RowsAffected() == 0 {
		return domain.Internal(fmt.Errorf("event %s/%s was never claimed", provider, eventID),
			"webhook_event.complete", "failed to record webhook outcome")
	}
	return nil
}
