package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

const orderColumns = `id, customer_id, status, payment_method, transaction_id, charge_id,
	total, currency, mode, parent_subscription_id, created_at, updated_at`

// OrderRepo implements the order store and renewal order repository.
type OrderRepo struct {
	db     DBTX
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ domain.OrderStore             = (*OrderRepo)(nil)
	_ domain.RenewalOrderRepository = (*OrderRepo)(nil)
)

// NewOrderRepo creates an OrderRepo.
func NewOrderRepo(db DBTX, loc *time.Location, logger *slog.Logger) *OrderRepo {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderRepo{db: db, loc: loc, logger: logger, now: time.Now}
}

// GetOrder returns the order with the given id.
func (r *OrderRepo) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound, "order.get")
	}
	return o, nil
}

// FindOrderByPaymentIntentID returns the order paid by a payment intent.
// Renewal orders are returned too; callers decide whether they apply.
func (r *OrderRepo) FindOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	if paymentIntentID == "" {
		return nil, domain.ErrOrderNotFound.WithOp("order.find_by_payment_intent")
	}
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1`, paymentIntentID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound, "order.find_by_payment_intent")
	}
	return o, nil
}

// FindRenewalOrderByPaymentIntentID returns the renewal order created for
// a payment intent.
func (r *OrderRepo) FindRenewalOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	if paymentIntentID == "" {
		return nil, domain.ErrOrderNotFound.WithOp("order.find_renewal")
	}
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE transaction_id = $1 AND parent_subscription_id IS NOT NULL`, paymentIntentID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound, "order.find_renewal")
	}
	return o, nil
}

// SetTransactionID stores the payment intent id on an order.
func (r *OrderRepo) SetTransactionID(ctx context.Context, orderID int64, transactionID string) error {
	return r.exec(ctx, "order.set_transaction_id",
		`UPDATE orders SET transaction_id = $1, updated_at = $2, updated_at_local = $3 WHERE id = $4`,
		transactionID, orderID)
}

// SetChargeID stores the captured charge id on an order.
func (r *OrderRepo) SetChargeID(ctx context.Context, orderID int64, chargeID string) error {
	return r.exec(ctx, "order.set_charge_id",
		`UPDATE orders SET charge_id = $1, updated_at = $2, updated_at_local = $3 WHERE id = $4`,
		chargeID, orderID)
}

// UpdateOrderStatus changes an order's status.
func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return r.exec(ctx, "order.update_status",
		`UPDATE orders SET status = $1, updated_at = $2, updated_at_local = $3 WHERE id = $4`,
		string(status), orderID)
}

// exec runs a single-column order update. query takes the value, the two
// updated_at columns and the order id, in that order.
func (r *OrderRepo) exec(ctx context.Context, op, query string, value any, orderID int64) error {
	now := r.now().UTC()
	tag, err := conn(ctx, r.db).Exec(ctx, query, value, now, localWall(now, r.loc), orderID)
	if err != nil {
		return domain.Internal(err, op, "failed to update order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithOp(op)
	}
	return nil
}

// AddOrderNote appends an audit note to an order.
func (r *OrderRepo) AddOrderNote(ctx context.Context, note domain.OrderNote) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = r.now().UTC()
	}
	if note.CausedBy == "" {
		note.CausedBy = domain.ActorSystem
	}
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO order_notes (order_id, note, caused_by, created_at, created_at_local)
		 VALUES ($1, $2, $3, $4, $5)`,
		note.OrderID, note.Note, string(note.CausedBy), note.CreatedAt.UTC(), localWall(note.CreatedAt, r.loc))
	if err != nil {
		return domain.Internal(err, "order.add_note", "failed to add order note")
	}
	return nil
}

// CreateRenewalOrder inserts the order for one recurring charge, already
// linked to its subscription. The unique payment intent index makes a
// second insert for the same payment a no-op reported as
// ErrRenewalAlreadyExists.
func (r *OrderRepo) CreateRenewalOrder(ctx context.Context, renewal domain.RenewalOrder) (*domain.Order, error) {
	now := r.now().UTC()
	status := renewal.Status
	if status == "" {
		status = domain.OrderProcessing
	}

	row := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO orders (customer_id, status, payment_method, transaction_id, charge_id, invoice_id,
		                     total, currency, mode, parent_subscription_id,
		                     created_at, created_at_local, updated_at, updated_at_local)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $11, $12)
		 ON CONFLICT (transaction_id) WHERE transaction_id <> '' DO NOTHING
		 RETURNING `+orderColumns,
		renewal.CustomerID, string(status), renewal.PaymentMethod, renewal.PaymentIntentID,
		renewal.ChargeID, renewal.InvoiceID, renewal.Total, renewal.Currency, string(renewal.Mode),
		renewal.SubscriptionID, now, localWall(now, r.loc),
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, domain.ErrRenewalAlreadyExists.WithOp("order.create_renewal")
		}
		return nil, domain.Internal(err, "order.create_renewal", "failed to create renewal order")
	}

	r.logger.Info("renewal order created",
		"order_id", o.ID,
		"subscription_id", renewal.SubscriptionID,
		"payment_intent_id", renewal.PaymentIntentID,
		"status", status,
	)
	return o, nil
}

// LinkRenewalOrder attaches an existing unlinked order to a subscription.
func (r *OrderRepo) LinkRenewalOrder(ctx context.Context, orderID, subscriptionID int64) error {
	now := r.now().UTC()
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE orders
		 SET parent_subscription_id = $1, updated_at = $2, updated_at_local = $3
		 WHERE id = $4 AND (parent_subscription_id IS NULL OR parent_subscription_id = $1)`,
		subscriptionID, now, localWall(now, r.loc), orderID)
	if err != nil {
		return domain.Internal(err, "order.link_renewal", "failed to link renewal order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRenewalAlreadyExists.WithOp("order.link_renewal")
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		status, mode string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &status, &o.PaymentMethod, &o.TransactionID, &o.ChargeID,
		&o.Total, &o.Currency, &mode, &o.ParentSubscriptionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.Mode = domain.PaymentMode(mode)
	return &o, nil
}
