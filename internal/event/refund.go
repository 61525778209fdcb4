package event

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// RefundEventTypes are the events that report gateway refunds.
var RefundEventTypes = []string{
	domain.EventChargeRefunded,
	domain.EventChargeRefundUpdated,
	domain.EventRefundCreated,
	domain.EventRefundUpdated,
	domain.EventRefundFailed,
}

// RefundBatch is the set of refunds one event reports for a payment.
type RefundBatch struct {
	PaymentIntent string
	Charge        string
	Refunds       []RefundView
}

type refundProcessor struct {
	Deps
}

// NewRefundProcessor records gateway refunds against the refunded order.
func NewRefundProcessor(deps Deps) Processor {
	p := &refundProcessor{Deps: deps.withDefaults()}
	return &Pipeline[RefundBatch, *domain.Order]{
		SourceType: domain.SourceOrderRefund,
		View:       refundBatch,
		Resolve:    p.resolve,
		RecordID:   func(o *domain.Order) int64 { return o.ID },
		Mode:       func(o *domain.Order) domain.PaymentMode { return o.Mode },
		Guard:      p.guard,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

func refundBatch(env *Envelope) (RefundBatch, error) {
	var b RefundBatch
	if env.Type() == domain.EventChargeRefunded {
		ch, err := env.Charge()
		if err != nil {
			return b, err
		}
		b = RefundBatch{PaymentIntent: ch.PaymentIntent, Charge: ch.ID, Refunds: ch.Refunds}
	} else {
		r, err := env.Refund()
		if err != nil {
			return b, err
		}
		b = RefundBatch{PaymentIntent: r.PaymentIntent, Charge: r.Charge, Refunds: []RefundView{r}}
	}
	if b.PaymentIntent == "" {
		return b, ErrUnsupportedEvent.WithOp("refund.view")
	}
	return b, nil
}

func (p *refundProcessor) resolve(ctx context.Context, _ *Envelope, b RefundBatch) (*domain.Order, error) {
	return p.Orders.FindOrderByPaymentIntentID(ctx, b.PaymentIntent)
}

func (p *refundProcessor) guard(ctx context.Context, _ *Envelope, b RefundBatch, o *domain.Order) error {
	const op = "refund.guard"
	if !o.PaidWith(p.GatewayID) {
		return rejected(op, "order %d is not paid with %s", o.ID, p.GatewayID)
	}
	if len(b.Refunds) == 0 {
		return rejected(op, "event carries no refund details")
	}

	fresh, moved, err := p.unsettled(ctx, b.Refunds)
	if err != nil {
		return err
	}
	if len(fresh) == 0 && len(moved) == 0 {
		return domain.ErrDuplicateRefund.WithOp(op)
	}
	return nil
}

// refundMove is a stored refund whose gateway status changed.
type refundMove struct {
	stored *domain.Refund
	status string
}

// unsettled splits the refunds into those not stored yet and stored ones
// whose status moved on at the gateway.
func (p *refundProcessor) unsettled(ctx context.Context, refunds []RefundView) ([]RefundView, []refundMove, error) {
	var (
		fresh []RefundView
		moved []refundMove
	)
	for _, r := range refunds {
		stored, err := p.Refunds.FindRefundByRemoteID(ctx, r.ID)
		switch {
		case err == nil:
			if r.Status != "" && r.Status != stored.Status {
				moved = append(moved, refundMove{stored: stored, status: r.Status})
			}
		case domain.IsCode(err, domain.ENOTFOUND):
			fresh = append(fresh, r)
		default:
			return nil, nil, err
		}
	}
	return fresh, moved, nil
}

func (p *refundProcessor) handle(ctx context.Context, _ *Envelope, b RefundBatch, o *domain.Order) (domain.RequestStatus, error) {
	logger := p.Logger.With("order_id", o.ID, "payment_intent_id", b.PaymentIntent)

	fresh, moved, err := p.unsettled(ctx, b.Refunds)
	if err != nil {
		return "", err
	}

	for _, m := range moved {
		if err := p.transition(ctx, o, m); err != nil {
			return "", err
		}
		p.note(ctx, o.ID, "Refund %s is now %s.", m.stored.RemoteRefundID, m.status)
	}

	failed := func(r RefundView, _ int) bool { return r.Failed() }
	for _, r := range lo.Filter(fresh, failed) {
		p.note(ctx, o.ID, "Refund %s of %s %s %s.", r.ID, r.Amount.StringFixed(domain.MinorUnitDecimals(r.Currency)), r.Currency, r.Status)
	}

	var status domain.RequestStatus
	for _, r := range lo.Reject(fresh, failed) {
		refund, err := p.record(ctx, o, r)
		if errors.Is(err, domain.ErrDuplicateRefund) {
			logger.Info("refund recorded concurrently", "refund_id", r.ID)
			continue
		}
		if err != nil {
			// The gateway already moved the money. Redelivery cannot fix
			// local persistence, so the event is acknowledged.
			logger.Error("failed to record confirmed refund", "refund_id", r.ID, "error", err)
			status = domain.RequestRecordDeleted
			continue
		}
		p.note(ctx, o.ID, "Refunded %s %s. Refund ID: %s.", refund.Amount.StringFixed(domain.MinorUnitDecimals(refund.Currency)), refund.Currency, refund.RemoteRefundID)
	}
	return status, nil
}

// record stores one refund and moves the order to refunded once it is
// refunded in full.
func (p *refundProcessor) record(ctx context.Context, o *domain.Order, r RefundView) (*domain.Refund, error) {
	var refund *domain.Refund
	err := p.Tx.WithTx(ctx, func(ctx context.Context) error {
		refunded, err := p.Refunds.SumRefunded(ctx, o.ID)
		if err != nil {
			return err
		}
		after := refunded.Add(r.Amount)
		currency := r.Currency
		if currency == "" {
			currency = o.Currency
		}
		refund = &domain.Refund{
			OrderID:        o.ID,
			RemoteRefundID: r.ID,
			Amount:         r.Amount,
			Currency:       currency,
			Reason:         r.Reason,
			Type:           domain.RefundTypeFor(after, o.Total),
			Status:         r.Status,
		}
		if err := p.Refunds.CreateRefund(ctx, refund); err != nil {
			return err
		}
		if refund.Type == domain.RefundFull {
			return p.Orders.UpdateOrderStatus(ctx, o.ID, domain.OrderRefunded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.Metrics != nil {
		p.Metrics.RefundsIssued.WithLabelValues(string(refund.Type), "webhook").Inc()
		p.Metrics.RefundAmount.WithLabelValues(refund.Currency).Add(refund.Amount.InexactFloat64())
	}
	return refund, nil
}

// transition stores a refund's new status and re-derives whether the order
// is refunded in full. An order that is no longer covered goes back to
// processing.
func (p *refundProcessor) transition(ctx context.Context, o *domain.Order, m refundMove) error {
	return p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.Refunds.UpdateRefundStatus(ctx, m.stored.ID, m.status); err != nil {
			return err
		}
		refunded, err := p.Refunds.SumRefunded(ctx, o.ID)
		if err != nil {
			return err
		}

		full := refunded.IsPositive() && domain.RefundTypeFor(refunded, o.Total) == domain.RefundFull
		switch {
		case full && o.Status != domain.OrderRefunded:
			o.Status = domain.OrderRefunded
		case !full && o.Status == domain.OrderRefunded:
			o.Status = domain.OrderProcessing
		default:
			return nil
		}
		return p.Orders.UpdateOrderStatus(ctx, o.ID, o.Status)
	})
}
