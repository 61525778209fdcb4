package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// SubscriptionFilter narrows List results. Zero fields do not filter.
type SubscriptionFilter struct {
	Statuses   []SubscriptionStatus
	Mode       PaymentMode
	CustomerID int64
	Limit      int
	Offset     int
}

// SubscriptionRepository persists subscriptions.
type SubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*Subscription, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Subscription, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*Subscription, error)
	List(ctx context.Context, filter SubscriptionFilter) ([]*Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
}

// OrderStore is the slice of the commerce order store the engine needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	FindOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error)
	SetTransactionID(ctx context.Context, orderID int64, transactionID string) error
	SetChargeID(ctx context.Context, orderID int64, chargeID string) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
	AddOrderNote(ctx context.Context, note OrderNote) error
}

// RenewalOrderRepository creates and links the orders of recurring charges.
type RenewalOrderRepository interface {
	FindRenewalOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error)

	// CreateRenewalOrder returns ErrRenewalAlreadyExists when an order for
	// the payment intent already exists.
	CreateRenewalOrder(ctx context.Context, renewal RenewalOrder) (*Order, error)
	LinkRenewalOrder(ctx context.Context, orderID, subscriptionID int64) error
}

// RefundStore persists refunds.
type RefundStore interface {
	FindRefundByRemoteID(ctx context.Context, remoteRefundID string) (*Refund, error)

	// CreateRefund returns ErrDuplicateRefund when the remote refund id is
	// already recorded.
	CreateRefund(ctx context.Context, refund *Refund) error
	UpdateRefundStatus(ctx context.Context, refundID int64, status string) error

	// SumRefunded excludes voided refunds.
	SumRefunded(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

// WebhookClaim identifies one inbound event delivery.
type WebhookClaim struct {
	Provider  string
	EventID   string
	EventType string
	Livemode  bool
}

// WebhookResult is the outcome stored for a processed event.
type WebhookResult struct {
	SourceType SourceType
	SourceID   string
	Status     RequestStatus
	Error      string
}

// WebhookEventStore records which events were processed.
type WebhookEventStore interface {
	// Claim reports whether the caller owns processing of the event. Events
	// already processed or in flight elsewhere are not claimable; failed
	// ones are, and their attempt counter grows.
	Claim(ctx context.Context, claim WebhookClaim) (claimed bool, attempts int, err error)
	Complete(ctx context.Context, provider, eventID string, result WebhookResult) error
}

// Transactor runs fn in a database transaction carried by the context.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly. Used where no database backs the stores.
type NoTx struct{}

// WithTx calls fn with ctx.
func (NoTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
