// Package notify delivers subscription lifecycle notifications. Delivery
// is fire-and-forget: sinks log their own failures and never fail the
// change that triggered them.
package notify

import (
	"context"
	"time"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// StatusChange describes one subscription status transition.
type StatusChange struct {
	Subscription *domain.Subscription
	From         domain.SubscriptionStatus
	To           domain.SubscriptionStatus
	CausedBy     domain.Actor
	At           time.Time
}

// Notifier receives lifecycle notifications.
type Notifier interface {
	StatusChanged(ctx context.Context, change StatusChange)
	ScheduleCreated(ctx context.Context, sub *domain.Subscription)
	CancellationScheduling(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor)
	CancellationScheduled(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor)
	OrderNote(ctx context.Context, note domain.OrderNote)
}

// Multi fans notifications out to every sink in order.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) StatusChanged(ctx context.Context, change StatusChange) {
	for _, n := range m {
		n.StatusChanged(ctx, change)
	}
}

func (m Multi) ScheduleCreated(ctx context.Context, sub *domain.Subscription) {
	for _, n := range m {
		n.ScheduleCreated(ctx, sub)
	}
}

func (m Multi) CancellationScheduling(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	for _, n := range m {
		n.CancellationScheduling(ctx, sub, causedBy)
	}
}

func (m Multi) CancellationScheduled(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	for _, n := range m {
		n.CancellationScheduled(ctx, sub, causedBy)
	}
}

func (m Multi) OrderNote(ctx context.Context, note domain.OrderNote) {
	for _, n := range m {
		n.OrderNote(ctx, note)
	}
}

// Nop discards every notification.
type Nop struct{}

var _ Notifier = Nop{}

func (Nop) StatusChanged(context.Context, StatusChange) {}
func (Nop) ScheduleCreated(context.Context, *domain.Subscription) {}
func (Nop) CancellationScheduling(context.Context, *domain.Subscription, domain.Actor) {}
func (Nop) CancellationScheduled(context.Context, *domain.Subscription, domain.Actor) {}
func (Nop) OrderNote(context.Context, domain.OrderNote) {}
