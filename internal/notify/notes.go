package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
)

// NoteWriter persists order notes. Satisfied by domain.OrderStore.
type NoteWriter interface {
	AddOrderNote(ctx context.Context, note domain.OrderNote) error
}

// OrderNotes records lifecycle changes as notes on the originating order.
type OrderNotes struct {
	store  NoteWriter
	logger *slog.Logger
	now    func() time.Time
}

var _ Notifier = (*OrderNotes)(nil)

// NewOrderNotes creates an OrderNotes sink.
func NewOrderNotes(store NoteWriter, logger *slog.Logger) *OrderNotes {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderNotes{store: store, logger: logger, now: time.Now}
}

func (o *OrderNotes) StatusChanged(ctx context.Context, c StatusChange) {
	if c.Subscription.FirstOrderID == 0 {
		return
	}
	o.write(ctx, domain.OrderNote{
		OrderID: c.Subscription.FirstOrderID,
		Note: fmt.Sprintf("Subscription #%d status changed from %s to %s by %s.",
			c.Subscription.ID, domain.StatusLabel(c.From), domain.StatusLabel(c.To), domain.ActorLabel(c.CausedBy)),
		CausedBy:  c.CausedBy,
		CreatedAt: c.At,
	})
}

func (o *OrderNotes) ScheduleCreated(ctx context.Context, sub *domain.Subscription) {
	if sub.FirstOrderID == 0 {
		return
	}
	o.write(ctx, domain.OrderNote{
		OrderID:  sub.FirstOrderID,
		Note:     fmt.Sprintf("Subscription #%d linked to payment schedule %s.", sub.ID, sub.TransactionID),
		CausedBy: domain.ActorWebhook,
	})
}

// CancellationScheduling is not noted; the note is written once the gateway
// confirms.
func (o *OrderNotes) CancellationScheduling(context.Context, *domain.Subscription, domain.Actor) {}

func (o *OrderNotes) CancellationScheduled(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	if sub.FirstOrderID == 0 {
		return
	}
	note := fmt.Sprintf("Subscription #%d set to cancel at the end of the billing period by %s.",
		sub.ID, domain.ActorLabel(causedBy))
	if sub.ExpiresAt != nil {
		note = fmt.Sprintf("Subscription #%d set to cancel on %s by %s.",
			sub.ID, sub.ExpiresAt.UTC().Format("2006-01-02"), domain.ActorLabel(causedBy))
	}
	o.write(ctx, domain.OrderNote{OrderID: sub.FirstOrderID, Note: note, CausedBy: causedBy})
}

func (o *OrderNotes) OrderNote(ctx context.Context, note domain.OrderNote) {
	o.write(ctx, note)
}

func (o *OrderNotes) write(ctx context.Context, note domain.OrderNote) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = o.now().UTC()
	}
	if err := o.store.AddOrderNote(ctx, note); err != nil {
		middleware.GetLogger(ctx, o.logger).Error("failed to add order note",
			"order_id", note.OrderID,
			"error", err,
		)
	}
}
