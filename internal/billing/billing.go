package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

//go:generate mockgen -source=billing.go -destination=mocks/gateway.go -package=mocks

// Gateway defines the remote payment gateway operations the subscription
// engine relies on. Every call that changes remote state returns the
// gateway's view of the object afterwards so callers can check that the
// expected state was actually reached.
type Gateway interface {
	// CancelSubscription cancels a remote subscription immediately.
	CancelSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)

	// CancelSubscriptionAtPeriodEnd schedules a remote subscription to
	// cancel when the current period ends.
	CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)

	// CancelSchedule cancels a remote subscription schedule immediately.
	CancelSchedule(ctx context.Context, scheduleID string) (*RemoteSubscription, error)

	// CancelScheduleAtPeriodEnd makes a remote subscription schedule cancel
	// instead of release when its last phase ends.
	CancelScheduleAtPeriodEnd(ctx context.Context, scheduleID string) (*RemoteSubscription, error)

	// PauseSubscription stops collecting payments until ResumesAt, or until
	// explicitly resumed when ResumesAt is nil.
	PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*RemoteSubscription, error)

	// ResumeSubscription resumes payment collection immediately.
	ResumeSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)

	// UpdatePaymentMethod sets the default payment method for renewals.
	UpdatePaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) (*RemoteSubscription, error)

	// GetUpcomingInvoice previews the next invoice of a remote subscription.
	GetUpcomingInvoice(ctx context.Context, subscriptionID string) (*UpcomingInvoice, error)

	// CreateRefund refunds all or part of a captured charge.
	CreateRefund(ctx context.Context, params CreateRefundParams) (*RemoteRefund, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	VerifyWebhookSignature(payload []byte, signature string) error

	// Mode reports which credential set the gateway was configured with.
	Mode() domain.PaymentMode
}

// PauseSubscriptionParams contains parameters for pausing a subscription.
type PauseSubscriptionParams struct {
	SubscriptionID string

	// ResumesAt is when collection restarts automatically. Optional.
	ResumesAt *time.Time

	// Behavior is what happens to invoices created while paused:
	// "void" (default), "keep_as_draft" or "mark_uncollectible".
	Behavior string
}

// CreateRefundParams contains parameters for refunding a charge.
type CreateRefundParams struct {
	ChargeID string

	// Amount in major currency units. Zero refunds the remaining balance.
	Amount   decimal.Decimal
	Currency string
	Reason   string

	// Metadata is stored on the remote refund (always include order_id).
	Metadata map[string]string

	// IdempotencyKey prevents duplicate refunds on retry.
	IdempotencyKey string
}

// RemoteSubscription is the gateway's view of a subscription or
// subscription schedule after a call.
type RemoteSubscription struct {
	ID     string
	Kind   domain.RemoteKind
	Status string // "active", "past_due", "canceled", "released", "completed", ...

	// CancelAtPeriodEnd is set on subscriptions scheduled to cancel.
	CancelAtPeriodEnd bool
	CancelAt          *time.Time
	CanceledAt        *time.Time

	// EndBehavior is set on schedules: "cancel" or "release".
	EndBehavior string

	// Paused is true while payment collection is paused.
	Paused    bool
	ResumesAt *time.Time
}

// IsTerminal reports whether the remote object reached a final state.
func (r *RemoteSubscription) IsTerminal() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case "canceled", "incomplete_expired":
		return true
	case "released", "completed":
		return r.Kind == domain.RemoteSchedule
	}
	return false
}

// IsCancelScheduled reports whether the remote object will cancel at the
// end of its current period.
func (r *RemoteSubscription) IsCancelScheduled() bool {
	if r == nil || r.IsTerminal() {
		return false
	}
	if r.Kind == domain.RemoteSchedule {
		return r.EndBehavior == "cancel"
	}
	return r.CancelAtPeriodEnd || r.CancelAt != nil
}

// UpcomingInvoice is a preview of the next invoice of a subscription.
type UpcomingInvoice struct {
	SubscriptionID string
	AmountDue      decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// RemoteRefund is the gateway's view of a refund.
type RemoteRefund struct {
	ID       string
	ChargeID string
	Amount   decimal.Decimal
	Currency string
	Status   string // "pending", "succeeded", "failed", "canceled", "requires_action"
}

// IsSucceeded reports whether the gateway accepted the refund. Pending
// refunds count as accepted; a later webhook reports the final outcome.
func (r *RemoteRefund) IsSucceeded() bool {
	if r == nil {
		return false
	}
	return r.Status == "succeeded" || r.Status == "pending"
}

// IsTerminal reports whether the refund reached a final state.
func (r *RemoteRefund) IsTerminal() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// unixTime converts a gateway timestamp, returning nil for zero.
func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
