package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// RefundRepo persists order refunds.
type RefundRepo struct {
	db     DBTX
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.RefundStore = (*RefundRepo)(nil)

// NewRefundRepo creates a RefundRepo.
func NewRefundRepo(db DBTX, loc *time.Location, logger *slog.Logger) *RefundRepo {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundRepo{db: db, loc: loc, logger: logger, now: time.Now}
}

// FindRefundByRemoteID returns the refund recorded for a gateway refund id.
func (r *RefundRepo) FindRefundByRemoteID(ctx context.Context, remoteRefundID string) (*domain.Refund, error) {
	var (
		ref  domain.Refund
		kind string
	)
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, order_id, remote_refund_id, amount, currency, reason, type, status, created_at
		 FROM order_refunds WHERE remote_refund_id = $1`, remoteRefundID,
	).Scan(&ref.ID, &ref.OrderID, &ref.RemoteRefundID, &ref.Amount, &ref.Currency, &ref.Reason, &kind, &ref.Status, &ref.CreatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrRefundNotFound, "refund.find_by_remote_id")
	}
	ref.Type = domain.RefundType(kind)
	return &ref, nil
}

// CreateRefund records a refund and sets its ID. A refund whose remote id
// is already recorded yields ErrDuplicateRefund.
func (r *RefundRepo) CreateRefund(ctx context.Context, refund *domain.Refund) error {
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = r.now().UTC()
	}
	if refund.Status == "" {
		refund.Status = "succeeded"
	}

	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO order_refunds (order_id, remote_refund_id, amount, currency, reason, type, status, created_at, created_at_local)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (remote_refund_id) DO NOTHING
		 RETURNING id`,
		refund.OrderID, refund.RemoteRefundID, refund.Amount, refund.Currency, refund.Reason,
		string(refund.Type), refund.Status, refund.CreatedAt.UTC(), localWall(refund.CreatedAt, r.loc),
	).Scan(&refund.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return domain.ErrDuplicateRefund.WithOp("refund.create")
		}
		return domain.Internal(err, "refund.create", "failed to record refund")
	}

	r.logger.Info("refund recorded",
		"refund_id", refund.ID,
		"order_id", refund.OrderID,
		"remote_refund_id", refund.RemoteRefundID,
		"amount", refund.Amount.StringFixed(2),
		"type", refund.Type,
	)
	return nil
}

// UpdateRefundStatus records a gateway status change of a stored refund.
func (r *RefundRepo) UpdateRefundStatus(ctx context.Context, refundID int64, status string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE order_refunds SET status = $1 WHERE id = $2`, status, refundID)
	if err != nil {
		return domain.Internal(err, "refund.update_status", "failed to update refund")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRefundNotFound.WithOp("refund.update_status")
	}
	r.logger.Info("refund status changed", "refund_id", refundID, "status", status)
	return nil
}

// SumRefunded returns the total refunded on an order, leaving out failed
// and canceled refunds.
func (r *RefundRepo) SumRefunded(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM order_refunds
		 WHERE order_id = $1 AND status NOT IN ('failed', 'canceled')`, orderID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, domain.Internal(err, "refund.sum", "failed to sum refunds")
	}
	return total, nil
}
