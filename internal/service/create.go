package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
)

// CreateFromOrderParams describes the subscription bought by one order line.
type CreateFromOrderParams struct {
	OrderID         int64           `validate:"required,gt=0"`
	OrderItemID     int64           `validate:"gte=0"`
	Period          schedule.Period `validate:"required,oneof=day week month year"`
	Frequency       int             `validate:"required,gt=0"`
	BillingTotal    *int            `validate:"omitempty,gt=0"`
	InitialAmount   decimal.Decimal
	RecurringAmount decimal.Decimal
	TransactionID   string
	PaymentMethodID string
	CausedBy        domain.Actor
}

// CreateFromOrder creates the subscription for a paid order line. Orders
// that are already paid, or that cost nothing, activate right away.
// Calling it again for the same order line returns the existing
// subscription.
func (s *SubscriptionService) CreateFromOrder(ctx context.Context, params CreateFromOrderParams) (sub *domain.Subscription, err error) {
	const op = "subscription.create_from_order"
	defer func() { s.record("create_from_order", err) }()

	if err := s.validate.Struct(params); err != nil {
		return nil, domain.WrapError(err, domain.EINVALID, op, ErrInvalidParams.Message)
	}
	if params.RecurringAmount.IsNegative() || params.InitialAmount.IsNegative() {
		return nil, domain.Errorf(domain.EINVALID, op, "amounts must not be negative")
	}

	order, err := s.orders.GetOrder(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.subs.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if found, ok := lo.Find(existing, func(e *domain.Subscription) bool {
		return e.FirstOrderItemID == params.OrderItemID
	}); ok {
		return found, nil
	}

	causedBy := actor(ctx, params.CausedBy)
	now := s.calc.Now().UTC()
	sub = &domain.Subscription{
		CustomerID:       order.CustomerID,
		FirstOrderID:     order.ID,
		FirstOrderItemID: params.OrderItemID,
		Period:           params.Period,
		Frequency:        params.Frequency,
		BillingTotal:     params.BillingTotal,
		InitialAmount:    params.InitialAmount,
		RecurringAmount:  params.RecurringAmount,
		CurrencyCode:     order.Currency,
		PaymentMethodID:  params.PaymentMethodID,
		Status:           domain.StatusPending,
		Mode:             order.Mode,
		Source:           domain.SourceStripe,
		CreatedAt:        now,
	}
	if params.TransactionID != "" {
		sub.LinkRemote(params.TransactionID, "")
	}

	paid := !order.Status.NeedsPayment() || !order.Total.IsPositive()

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.subs.Create(ctx, sub); err != nil {
			return err
		}
		if !paid {
			return nil
		}
		if _, err := sub.Activate(s.calc, now); err != nil {
			return err
		}
		return s.subs.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SubscriptionsCreated.WithLabelValues(string(sub.Mode), strconv.FormatBool(sub.IsBounded())).Inc()
	}
	if sub.Status != domain.StatusPending {
		s.statusChanged(ctx, sub, domain.StatusPending, causedBy)
	}
	if sub.IsLinked() && sub.IsScheduleType() {
		s.notifier.ScheduleCreated(ctx, sub)
	}
	s.notifier.OrderNote(ctx, domain.OrderNote{
		OrderID:  order.ID,
		Note:     fmt.Sprintf("Subscription #%d created.", sub.ID),
		CausedBy: causedBy,
	})

	middleware.GetLogger(ctx, s.logger).Info("subscription created from order",
		"subscription_id", sub.ID,
		"order_id", order.ID,
		"status", sub.Status,
		"bounded", sub.IsBounded(),
	)
	return sub, nil
}
