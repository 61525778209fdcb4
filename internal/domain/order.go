package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the commerce order a subscription originated from, or a renewal
// order created for one of its recurring charges.
type Order struct {
	ID            int64
	CustomerID    int64
	Status        OrderStatus
	PaymentMethod string

	// TransactionID is the gateway payment intent id.
	TransactionID string

	// ChargeID is the captured gateway charge, set once payment succeeds.
	ChargeID string

	Total    decimal.Decimal
	Currency string
	Mode     PaymentMode

	// ParentSubscriptionID is set on renewal orders.
	ParentSubscriptionID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRenewal reports whether the order was created for a recurring charge.
func (o *Order) IsRenewal() bool {
	return o.ParentSubscriptionID != nil
}

// PaidWith reports whether the order was paid through the given gateway.
func (o *Order) PaidWith(gatewayID string) bool {
	return o.PaymentMethod == gatewayID
}

// Refund is a local record of a gateway refund.
type Refund struct {
	ID             int64
	OrderID        int64
	RemoteRefundID string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
	Type           RefundType
	Status         string
	CreatedAt      time.Time
}

// RefundVoided reports whether a gateway refund status means the refund
// will never move money.
func RefundVoided(status string) bool {
	return status == "failed" || status == "canceled"
}

// RefundTypeFor classifies a refund amount against the order total.
func RefundTypeFor(amount, orderTotal decimal.Decimal) RefundType {
	if amount.GreaterThanOrEqual(orderTotal) {
		return RefundFull
	}
	return RefundPartial
}

// OrderNote is an audit note attached to an order.
type OrderNote struct {
	ID        int64
	OrderID   int64
	Note      string
	CausedBy  Actor
	CreatedAt time.Time
}

// RenewalOrder describes the order created for one recurring charge.
type RenewalOrder struct {
	SubscriptionID  int64
	CustomerID      int64
	PaymentIntentID string
	ChargeID        string
	InvoiceID       string
	Total           decimal.Decimal
	Currency        string
	Status          OrderStatus
	Mode            PaymentMode
	PaymentMethod   string
}
