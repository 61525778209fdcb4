package notify

import (
	"context"
	"log/slog"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
)

// Log writes notifications to the request logger.
type Log struct {
	logger *slog.Logger
}

var _ Notifier = (*Log)(nil)

// NewLog creates a Log sink. A nil logger uses slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) log(ctx context.Context) *slog.Logger {
	return middleware.GetLogger(ctx, l.logger)
}

func (l *Log) StatusChanged(ctx context.Context, c StatusChange) {
	l.log(ctx).Info("subscription status changed",
		"subscription_id", c.Subscription.ID,
		"from", c.From,
		"to", c.To,
		"caused_by", c.CausedBy,
	)
}

func (l *Log) ScheduleCreated(ctx context.Context, sub *domain.Subscription) {
	l.log(ctx).Info("subscription schedule created",
		"subscription_id", sub.ID,
		"transaction_id", sub.TransactionID,
	)
}

func (l *Log) CancellationScheduling(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	l.log(ctx).Info("scheduling subscription cancellation",
		"subscription_id", sub.ID,
		"caused_by", causedBy,
	)
}

func (l *Log) CancellationScheduled(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	l.log(ctx).Info("subscription cancellation scheduled",
		"subscription_id", sub.ID,
		"expires_at", sub.ExpiresAt,
		"caused_by", causedBy,
	)
}

func (l *Log) OrderNote(ctx context.Context, note domain.OrderNote) {
	l.log(ctx).Info("order note",
		"order_id", note.OrderID,
		"note", note.Note,
		"caused_by", note.CausedBy,
	)
}
