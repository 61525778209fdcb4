package event

import (
	"context"
	"errors"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// InvoiceEventTypes are the subscription invoice events.
var InvoiceEventTypes = []string{
	domain.EventInvoicePaid,
	domain.EventInvoicePaymentSucceeded,
	domain.EventInvoicePaymentFailed,
}

// Renewal outcomes recorded in metrics.
const (
	renewalPaid      = "paid"
	renewalFailed    = "failed"
	renewalDuplicate = "duplicate"
)

// InvoiceTarget is the local state an invoice event applies to.
type InvoiceTarget struct {
	Subscription *domain.Subscription

	// Renewal is the renewal order already created for the invoice's
	// payment, if any.
	Renewal *domain.Order

	// Unlinked is an order for the payment that no subscription claimed
	// yet.
	Unlinked *domain.Order
}

type invoiceProcessor struct {
	Deps
}

// NewInvoiceProcessor turns subscription invoices into activations,
// renewal orders and dunning.
func NewInvoiceProcessor(deps Deps) Processor {
	p := &invoiceProcessor{Deps: deps.withDefaults()}
	return &Pipeline[InvoiceView, InvoiceTarget]{
		SourceType: domain.SourceInvoice,
		View:       invoiceView,
		Resolve:    p.resolve,
		RecordID:   func(t InvoiceTarget) int64 { return t.Subscription.ID },
		Mode:       func(t InvoiceTarget) domain.PaymentMode { return t.Subscription.Mode },
		Guard:      p.guard,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

func invoiceView(env *Envelope) (InvoiceView, error) {
	v, err := env.Invoice()
	if err != nil {
		return v, err
	}
	if !v.IsFirst() && v.PaymentKey() == "" {
		return v, ErrUnsupportedEvent.WithOp("invoice.view")
	}
	return v, nil
}

func paidEvent(env *Envelope) bool {
	return env.Type() == domain.EventInvoicePaid || env.Type() == domain.EventInvoicePaymentSucceeded
}

func (p *invoiceProcessor) resolve(ctx context.Context, _ *Envelope, v InvoiceView) (InvoiceTarget, error) {
	var t InvoiceTarget
	sub, err := p.findSubscription(ctx, v.SubscriptionMetadata, v.Subscription)
	if err != nil {
		return t, err
	}
	t.Subscription = sub

	key := v.PaymentKey()
	if key == "" || v.IsFirst() {
		return t, nil
	}

	t.Renewal, err = p.Renewals.FindRenewalOrderByPaymentIntentID(ctx, key)
	if err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
		return t, err
	}
	if t.Renewal != nil {
		return t, nil
	}

	o, err := p.Orders.FindOrderByPaymentIntentID(ctx, key)
	switch {
	case err == nil:
		if !o.IsRenewal() && o.ID != sub.FirstOrderID {
			t.Unlinked = o
		}
	case !domain.IsCode(err, domain.ENOTFOUND):
		return t, err
	}
	return t, nil
}

func (p *invoiceProcessor) guard(_ context.Context, env *Envelope, v InvoiceView, t InvoiceTarget) error {
	const op = "invoice.guard"
	sub := t.Subscription

	if t.Renewal != nil {
		// A failed renewal whose payment was retried successfully.
		if paidEvent(env) && t.Renewal.Status == domain.OrderFailed {
			return nil
		}
		return domain.ErrRenewalAlreadyExists.WithOp(op)
	}
	if v.IsFirst() {
		return nil
	}
	if paidEvent(env) && !sub.AcceptsRenewal() {
		return rejected(op, "subscription %d cannot be renewed while %s", sub.ID, sub.Status)
	}
	if !paidEvent(env) && sub.Status.IsTerminal() {
		return domain.ErrTerminalStatus.WithOp(op)
	}
	return nil
}

func (p *invoiceProcessor) handle(ctx context.Context, env *Envelope, v InvoiceView, t InvoiceTarget) (domain.RequestStatus, error) {
	switch {
	case v.IsFirst() && paidEvent(env):
		return "", p.activate(ctx, v, t.Subscription)
	case v.IsFirst():
		// The payment intent events settle the first order.
		return "", nil
	case paidEvent(env) && t.Renewal != nil:
		return "", p.retried(ctx, v, t)
	case paidEvent(env):
		return p.renew(ctx, v, t)
	}
	return p.fail(ctx, v, t)
}

// activate starts a subscription on its first invoice.
func (p *invoiceProcessor) activate(ctx context.Context, v InvoiceView, sub *domain.Subscription) error {
	calc := p.Lifecycle.Calculator()
	now := p.now()

	return p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if v.PaymentIntent != "" && sub.FirstOrderID != 0 {
			o, err := p.Orders.GetOrder(ctx, sub.FirstOrderID)
			if err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
				return err
			}
			if o != nil && o.TransactionID == "" {
				if err := p.Orders.SetTransactionID(ctx, o.ID, v.PaymentIntent); err != nil {
					return err
				}
			}
		}
		_, err := p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
			if s.Status != domain.StatusPending && s.Status != domain.StatusProcessing {
				return false, nil
			}
			return s.Activate(calc, now)
		})
		return err
	})
}

// renew records one paid recurring charge: exactly one renewal order per
// payment, then the renewal itself.
func (p *invoiceProcessor) renew(ctx context.Context, v InvoiceView, t InvoiceTarget) (domain.RequestStatus, error) {
	sub := t.Subscription
	calc := p.Lifecycle.Calculator()
	now := p.now()

	var orderID int64
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		id, err := p.renewalOrder(ctx, v, t, domain.OrderProcessing)
		if err != nil {
			return err
		}
		orderID = id
		_, err = p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
			return s.RecordRenewal(calc, now)
		})
		return err
	})
	if errors.Is(err, domain.ErrRenewalAlreadyExists) {
		p.renewal(sub, renewalDuplicate)
		return domain.RequestUnprocessable, nil
	}
	if err != nil {
		return "", err
	}

	p.renewal(sub, renewalPaid)
	p.note(ctx, orderID, "Renewal payment for subscription #%d succeeded (Payment Intent: %s).", sub.ID, v.PaymentKey())
	return "", nil
}

// retried settles a renewal order whose earlier charge failed.
func (p *invoiceProcessor) retried(ctx context.Context, v InvoiceView, t InvoiceTarget) error {
	sub := t.Subscription
	calc := p.Lifecycle.Calculator()
	now := p.now()

	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if v.Charge != "" {
			if err := p.Orders.SetChargeID(ctx, t.Renewal.ID, v.Charge); err != nil {
				return err
			}
		}
		if err := p.Orders.UpdateOrderStatus(ctx, t.Renewal.ID, domain.OrderProcessing); err != nil {
			return err
		}
		_, err := p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
			return s.RecordRenewal(calc, now)
		})
		return err
	})
	if err != nil {
		return err
	}

	p.renewal(sub, renewalPaid)
	p.note(ctx, t.Renewal.ID, "Retried renewal payment for subscription #%d succeeded.", sub.ID)
	return nil
}

// fail records a failed recurring charge. The failed renewal order makes
// redelivery of the same failure a duplicate.
func (p *invoiceProcessor) fail(ctx context.Context, v InvoiceView, t InvoiceTarget) (domain.RequestStatus, error) {
	sub := t.Subscription

	var orderID int64
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		id, err := p.renewalOrder(ctx, v, t, domain.OrderFailed)
		if err != nil {
			return err
		}
		orderID = id
		_, err = p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
			if s.Status != domain.StatusActive {
				return false, nil
			}
			return s.MarkPastDue()
		})
		return err
	})
	if errors.Is(err, domain.ErrRenewalAlreadyExists) {
		p.renewal(sub, renewalDuplicate)
		return domain.RequestUnprocessable, nil
	}
	if err != nil {
		return "", err
	}

	p.renewal(sub, renewalFailed)
	p.note(ctx, orderID, "Renewal payment for subscription #%d failed.", sub.ID)
	return "", nil
}

// renewalOrder creates the renewal order for the invoice's payment, or
// claims an unlinked order already created for it.
func (p *invoiceProcessor) renewalOrder(ctx context.Context, v InvoiceView, t InvoiceTarget, status domain.OrderStatus) (int64, error) {
	sub := t.Subscription

	if t.Unlinked != nil {
		if err := p.Renewals.LinkRenewalOrder(ctx, t.Unlinked.ID, sub.ID); err != nil {
			return 0, err
		}
		if err := p.Orders.UpdateOrderStatus(ctx, t.Unlinked.ID, status); err != nil {
			return 0, err
		}
		return t.Unlinked.ID, nil
	}

	total := v.AmountPaid
	if status == domain.OrderFailed {
		total = v.AmountDue
	}
	currency := v.Currency
	if currency == "" {
		currency = sub.CurrencyCode
	}

	o, err := p.Renewals.CreateRenewalOrder(ctx, domain.RenewalOrder{
		SubscriptionID:  sub.ID,
		CustomerID:      sub.CustomerID,
		PaymentIntentID: v.PaymentKey(),
		ChargeID:        v.Charge,
		InvoiceID:       v.ID,
		Total:           total,
		Currency:        currency,
		Status:          status,
		Mode:            sub.Mode,
		PaymentMethod:   p.GatewayID,
	})
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (p *invoiceProcessor) renewal(sub *domain.Subscription, outcome string) {
	if p.Metrics != nil {
		p.Metrics.SubscriptionRenewals.WithLabelValues(string(sub.Mode), outcome).Inc()
	}
}
