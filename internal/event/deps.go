package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/modifier"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// DefaultGatewayID is the payment method id orders paid through Stripe
// carry.
const DefaultGatewayID = "stripe"

// metadataSubscriptionID is the gateway metadata key holding the local
// subscription id.
const metadataSubscriptionID = "subscription_id"

// Lifecycle applies subscription transitions. Satisfied by
// *service.SubscriptionService.
type Lifecycle interface {
	Apply(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor, mutate func(*domain.Subscription) (bool, error)) (bool, error)
	Cancel(ctx context.Context, id int64, params service.CancelParams) (*domain.Subscription, error)
	Calculator() *schedule.Calculator
	Tracker() *modifier.Tracker
}

var _ Lifecycle = (*service.SubscriptionService)(nil)

// Deps wires the processors.
type Deps struct {
	Subscriptions domain.SubscriptionRepository
	Orders        domain.OrderStore
	Renewals      domain.RenewalOrderRepository
	Refunds       domain.RefundStore
	Lifecycle     Lifecycle
	Tx            domain.Transactor
	Notifier      notify.Notifier
	Metrics       *telemetry.BusinessMetrics
	GatewayID     string
	Logger        *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Tx == nil {
		d.Tx = domain.NoTx{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.GatewayID == "" {
		d.GatewayID = DefaultGatewayID
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

func (d Deps) now() time.Time {
	return d.Lifecycle.Calculator().Now().UTC()
}

// actorFor attributes a webhook-driven change to whoever initiated it
// through a command, defaulting to the webhook.
func (d Deps) actorFor(sub *domain.Subscription, events ...string) domain.Actor {
	return d.Lifecycle.Tracker().ActorFor(sub.ID, domain.ActorWebhook, events...)
}

func (d Deps) note(ctx context.Context, orderID int64, format string, args ...any) {
	if orderID == 0 {
		return
	}
	d.Notifier.OrderNote(ctx, domain.OrderNote{
		OrderID:  orderID,
		Note:     fmt.Sprintf(format, args...),
		CausedBy: domain.ActorWebhook,
	})
}

// findSubscription resolves a gateway object id to a local subscription,
// falling back to the local id the gateway object carries in metadata.
func (d Deps) findSubscription(ctx context.Context, metadata map[string]string, transactionIDs ...string) (*domain.Subscription, error) {
	for _, id := range transactionIDs {
		if id == "" {
			continue
		}
		sub, err := d.Subscriptions.FindByTransactionID(ctx, id)
		if err == nil {
			return sub, nil
		}
		if !domain.IsCode(err, domain.ENOTFOUND) {
			return nil, err
		}
	}

	if raw, ok := metadata[metadataSubscriptionID]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return d.Subscriptions.Get(ctx, id)
		}
	}
	return nil, domain.ErrSubscriptionNotFound.WithOp("event.find_subscription")
}

func subscriptionID(sub *domain.Subscription) int64                { return sub.ID }
func subscriptionMode(sub *domain.Subscription) domain.PaymentMode { return sub.Mode }
