package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// RefundService issues refunds on captured orders.
type RefundService struct {
	orders   domain.OrderStore
	refunds  domain.RefundStore
	gateway  billing.Gateway
	tx       domain.Transactor
	notifier notify.Notifier
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewRefundService creates a RefundService.
func NewRefundService(orders domain.OrderStore, refunds domain.RefundStore, gateway billing.Gateway, tx domain.Transactor, notifier notify.Notifier, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *RefundService {
	if tx == nil {
		tx = domain.NoTx{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundService{
		orders:   orders,
		refunds:  refunds,
		gateway:  gateway,
		tx:       tx,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// RefundParams describes a refund request.
type RefundParams struct {
	OrderID int64

	// Amount to refund. Zero refunds the remaining balance.
	Amount   decimal.Decimal
	Reason   string
	CausedBy domain.Actor
}

// Refund refunds part or all of an order's captured charge. The gateway
// refund id is stored so the webhook that reports the same refund is
// recognized as a duplicate.
func (s *RefundService) Refund(ctx context.Context, params RefundParams) (*domain.Refund, error) {
	const op = "refund.create"
	logger := middleware.GetLogger(ctx, s.logger).With("order_id", params.OrderID)

	order, err := s.orders.GetOrder(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ChargeID == "" {
		return nil, domain.ErrOrderNotRefundable.WithOp(op)
	}

	refunded, err := s.refunds.SumRefunded(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	remaining := order.Total.Sub(refunded)

	amount := params.Amount
	if amount.IsZero() {
		amount = remaining
	}
	if !amount.IsPositive() || amount.GreaterThan(remaining) {
		return nil, domain.ErrInvalidRefundAmount.WithOp(op)
	}

	causedBy := actor(ctx, params.CausedBy)
	remote, err := s.gateway.CreateRefund(ctx, billing.CreateRefundParams{
		ChargeID: order.ChargeID,
		Amount:   amount,
		Currency: order.Currency,
		Reason:   params.Reason,
		Metadata: map[string]string{
			"order_id":  strconv.FormatInt(order.ID, 10),
			"caused_by": string(causedBy),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create remote refund: %w", err)
	}
	if !remote.IsSucceeded() {
		logger.Warn("gateway declined refund", "remote_refund_id", remote.ID, "status", remote.Status)
		return nil, ErrRefundDeclined.WithOp(op)
	}

	refund := &domain.Refund{
		OrderID:        order.ID,
		RemoteRefundID: remote.ID,
		Amount:         amount,
		Currency:       order.Currency,
		Reason:         params.Reason,
		Type:           domain.RefundTypeFor(refunded.Add(amount), order.Total),
		Status:         remote.Status,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.refunds.CreateRefund(ctx, refund); err != nil {
			return err
		}
		if refund.Type == domain.RefundFull {
			return s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderRefunded)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateRefund) {
		// The webhook for this refund was processed first.
		return s.refunds.FindRefundByRemoteID(ctx, remote.ID)
	}
	if err != nil {
		// The money has moved; the refund webhook will record it.
		logger.Error("refund issued but not recorded", "remote_refund_id", remote.ID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RefundsIssued.WithLabelValues(string(refund.Type), "command").Inc()
		s.metrics.RefundAmount.WithLabelValues(refund.Currency).Add(amount.InexactFloat64())
	}
	s.notifier.OrderNote(ctx, domain.OrderNote{
		OrderID: order.ID,
		Note: fmt.Sprintf("Refunded %s %s (%s) by %s. Refund ID: %s.",
			amount.StringFixed(2), order.Currency, refund.Type, domain.ActorLabel(causedBy), remote.ID),
		CausedBy: causedBy,
	})

	logger.Info("refund issued", "remote_refund_id", remote.ID, "amount", amount.String(), "type", refund.Type)
	return refund, nil
}
