package event

import (
	"context"
	"strings"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// OrderEventTypes are the payment intent events applied to orders.
var OrderEventTypes = []string{
	domain.EventPaymentIntentSucceeded,
	domain.EventPaymentIntentFailed,
	domain.EventPaymentIntentCanceled,
	domain.EventPaymentIntentProcessing,
}

type orderProcessor struct {
	Deps
}

// NewOrderProcessor applies payment intent events to the order they paid
// for and to the subscriptions created from it.
func NewOrderProcessor(deps Deps) Processor {
	p := &orderProcessor{Deps: deps.withDefaults()}
	return &Pipeline[PaymentIntentView, *domain.Order]{
		SourceType: domain.SourceOrder,
		View:       (*Envelope).PaymentIntent,
		Resolve:    p.resolve,
		RecordID:   func(o *domain.Order) int64 { return o.ID },
		Mode:       func(o *domain.Order) domain.PaymentMode { return o.Mode },
		Guard:      p.guard,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

func (p *orderProcessor) resolve(ctx context.Context, _ *Envelope, pi PaymentIntentView) (*domain.Order, error) {
	return p.Orders.FindOrderByPaymentIntentID(ctx, pi.ID)
}

func (p *orderProcessor) guard(_ context.Context, env *Envelope, _ PaymentIntentView, o *domain.Order) error {
	const op = "order.guard"
	if !o.PaidWith(p.GatewayID) {
		return rejected(op, "order %d is not paid with %s", o.ID, p.GatewayID)
	}
	if o.Status.NeedsPayment() {
		return nil
	}
	// on_hold is the status a processing payment leaves behind.
	if o.Status == domain.OrderOnHold && env.Type() != domain.EventPaymentIntentProcessing {
		return nil
	}
	return rejected(op, "order %d is already %s", o.ID, o.Status)
}

func (p *orderProcessor) handle(ctx context.Context, env *Envelope, pi PaymentIntentView, o *domain.Order) (domain.RequestStatus, error) {
	switch env.Type() {
	case domain.EventPaymentIntentSucceeded:
		return "", p.succeeded(ctx, pi, o)
	case domain.EventPaymentIntentFailed:
		return "", p.failed(ctx, pi, o)
	case domain.EventPaymentIntentCanceled:
		return "", p.canceled(ctx, o)
	case domain.EventPaymentIntentProcessing:
		return "", p.processing(ctx, o)
	}
	return "", ErrUnsupportedEvent.WithOp("order.handle")
}

func (p *orderProcessor) succeeded(ctx context.Context, pi PaymentIntentView, o *domain.Order) error {
	calc := p.Lifecycle.Calculator()
	now := p.now()

	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if pi.LatestCharge != "" {
			if err := p.Orders.SetChargeID(ctx, o.ID, pi.LatestCharge); err != nil {
				return err
			}
		}
		if err := p.Orders.UpdateOrderStatus(ctx, o.ID, domain.OrderProcessing); err != nil {
			return err
		}
		return p.eachSubscription(ctx, o.ID, func(sub *domain.Subscription) (bool, error) {
			if sub.Status != domain.StatusPending && sub.Status != domain.StatusProcessing {
				return false, nil
			}
			return sub.Activate(calc, now)
		})
	})
	if err != nil {
		return err
	}

	p.note(ctx, o.ID, "Payment succeeded (Charge ID: %s).", pi.LatestCharge)
	return nil
}

func (p *orderProcessor) failed(ctx context.Context, pi PaymentIntentView, o *domain.Order) error {
	if err := p.Orders.UpdateOrderStatus(ctx, o.ID, domain.OrderFailed); err != nil {
		return err
	}
	reason := strings.TrimSuffix(pi.LastPaymentError, ".")
	if reason == "" {
		reason = "unknown reason"
	}
	p.note(ctx, o.ID, "Payment failed: %s.", reason)
	return nil
}

func (p *orderProcessor) canceled(ctx context.Context, o *domain.Order) error {
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.Orders.UpdateOrderStatus(ctx, o.ID, domain.OrderCanceled); err != nil {
			return err
		}
		return p.eachSubscription(ctx, o.ID, func(sub *domain.Subscription) (bool, error) {
			if sub.Status != domain.StatusPending && sub.Status != domain.StatusProcessing {
				return false, nil
			}
			return sub.Abandon()
		})
	})
	if err != nil {
		return err
	}
	p.note(ctx, o.ID, "Payment was canceled.")
	return nil
}

func (p *orderProcessor) processing(ctx context.Context, o *domain.Order) error {
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.Orders.UpdateOrderStatus(ctx, o.ID, domain.OrderOnHold); err != nil {
			return err
		}
		return p.eachSubscription(ctx, o.ID, func(sub *domain.Subscription) (bool, error) {
			if sub.Status != domain.StatusPending {
				return false, nil
			}
			return sub.MarkProcessing()
		})
	})
	if err != nil {
		return err
	}
	p.note(ctx, o.ID, "Payment is processing.")
	return nil
}

// eachSubscription applies mutate to every subscription created from an
// order.
func (p *orderProcessor) eachSubscription(ctx context.Context, orderID int64, mutate func(*domain.Subscription) (bool, error)) error {
	subs, err := p.Subscriptions.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if _, err := p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, mutate); err != nil {
			return err
		}
	}
	return nil
}
