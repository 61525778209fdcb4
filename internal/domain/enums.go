package domain

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// SubscriptionStatus is the lifecycle status of a subscription.
type SubscriptionStatus string

const (
	StatusPending    SubscriptionStatus = "pending"
	StatusProcessing SubscriptionStatus = "processing"
	StatusActive     SubscriptionStatus = "active"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusSuspended  SubscriptionStatus = "suspended"
	StatusPaused     SubscriptionStatus = "paused"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusCompleted  SubscriptionStatus = "completed"
	StatusExpired    SubscriptionStatus = "expired"
	StatusAbandoned  SubscriptionStatus = "abandoned"

	// statusFailing is the deprecated name of past_due still found in old rows.
	statusFailing = "failing"
)

// AllStatuses lists every subscription status.
var AllStatuses = []SubscriptionStatus{
	StatusPending, StatusProcessing, StatusActive, StatusPastDue, StatusSuspended,
	StatusPaused, StatusCanceled, StatusCompleted, StatusExpired, StatusAbandoned,
}

// ParseStatus converts a stored or user supplied status string.
// The deprecated "failing" value maps to past_due.
func ParseStatus(s string) (SubscriptionStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == statusFailing {
		return StatusPastDue, nil
	}
	st := SubscriptionStatus(s)
	if !st.Valid() {
		return "", Errorf(EINVALID, "subscription.status", "unknown subscription status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	return lo.Contains(AllStatuses, s)
}

// IsTerminal reports whether the status can no longer change through
// normal business flow.
func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusCompleted, StatusExpired, StatusAbandoned:
		return true
	}
	return false
}

// PaymentMode is the gateway credential set a record was created under.
type PaymentMode string

const (
	ModeLive PaymentMode = "live"
	ModeTest PaymentMode = "test"
)

// ModeFromLivemode maps the gateway's livemode flag to a PaymentMode.
func ModeFromLivemode(livemode bool) PaymentMode {
	if livemode {
		return ModeLive
	}
	return ModeTest
}

// ParsePaymentMode parses "live" or "test".
func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(strings.ToLower(s)) {
	case ModeLive:
		return ModeLive, nil
	case ModeTest:
		return ModeTest, nil
	}
	return "", Errorf(EINVALID, "payment_mode", "unknown payment mode %q", s)
}

// RefundType distinguishes full from partial refunds.
type RefundType string

const (
	RefundFull    RefundType = "full"
	RefundPartial RefundType = "partial"
)

// RemoteKind is the kind of gateway object a subscription is linked to.
type RemoteKind string

const (
	RemoteSubscription RemoteKind = "subscription"
	RemoteSchedule     RemoteKind = "schedule"
)

// scheduleIDPrefix marks gateway subscription schedule ids.
const scheduleIDPrefix = "sub_sched_"

// RemoteKindFromID infers the remote object kind from its id.
// Returns "" for an empty id.
func RemoteKindFromID(id string) RemoteKind {
	switch {
	case id == "":
		return ""
	case strings.HasPrefix(id, scheduleIDPrefix):
		return RemoteSchedule
	default:
		return RemoteSubscription
	}
}

// Actor identifies who triggered a status change.
type Actor string

const (
	ActorWebhook  Actor = "webhook"
	ActorAdmin    Actor = "admin"
	ActorCustomer Actor = "customer"
	ActorSystem   Actor = "system"
)

// ParseActor parses an actor name. An empty string is the webhook actor.
func ParseActor(s string) (Actor, error) {
	if s == "" {
		return ActorWebhook, nil
	}
	a := Actor(strings.ToLower(s))
	switch a {
	case ActorWebhook, ActorAdmin, ActorCustomer, ActorSystem:
		return a, nil
	}
	return "", Errorf(EINVALID, "actor", "unknown actor %q", s)
}

// OrderStatus is the status of a commerce order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on_hold"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
	OrderCanceled   OrderStatus = "canceled"
	OrderRefunded   OrderStatus = "refunded"
)

// NeedsPayment reports whether a payment notification may still change
// the order.
func (s OrderStatus) NeedsPayment() bool {
	return s == OrderPending || s == OrderFailed
}

// SourceType is the kind of local record an event was correlated with.
type SourceType string

const (
	SourceOrder        SourceType = "order"
	SourceOrderRefund  SourceType = "order_refund"
	SourceSubscription SourceType = "subscription"
	SourceInvoice      SourceType = "subscription_invoice"
	SourceAccount      SourceType = "account"
	SourceUnknown      SourceType = "unknown"
)

// RequestStatus is the outcome of processing one webhook event.
type RequestStatus string

const (
	RequestRecordNotFound RequestStatus = "record_not_found"
	RequestUnprocessable  RequestStatus = "unprocessable"
	RequestRecordDeleted  RequestStatus = "record_deleted"
	RequestSucceeded      RequestStatus = "succeeded"
	RequestFailed         RequestStatus = "failed"
	RequestError          RequestStatus = "error"
)

// Acknowledged reports whether the gateway should stop redelivering an
// event that ended with this status.
func (s RequestStatus) Acknowledged() bool {
	switch s {
	case RequestSucceeded, RequestRecordNotFound, RequestUnprocessable, RequestRecordDeleted:
		return true
	}
	return false
}

// Source identifies the system a subscription originated from.
type Source string

const SourceStripe Source = "stripe"

// Gateway event types handled by the webhook pipeline.
const (
	EventPaymentIntentSucceeded  = "payment_intent.succeeded"
	EventPaymentIntentFailed     = "payment_intent.payment_failed"
	EventPaymentIntentCanceled   = "payment_intent.canceled"
	EventPaymentIntentProcessing = "payment_intent.processing"

	EventChargeRefunded      = "charge.refunded"
	EventChargeRefundUpdated = "charge.refund.updated"
	EventRefundCreated       = "refund.created"
	EventRefundUpdated       = "refund.updated"
	EventRefundFailed        = "refund.failed"

	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionPaused  = "customer.subscription.paused"
	EventSubscriptionResumed = "customer.subscription.resumed"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	EventScheduleCreated   = "subscription_schedule.created"
	EventScheduleUpdated   = "subscription_schedule.updated"
	EventScheduleCanceled  = "subscription_schedule.canceled"
	EventScheduleCompleted = "subscription_schedule.completed"
	EventScheduleReleased  = "subscription_schedule.released"

	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"

	EventAccountDeauthorized = "account.application.deauthorized"
)

// Modifier event keys used to attribute command-initiated changes.
const (
	ModifierCancel            = "cancel"
	ModifierCancelAtPeriodEnd = "cancel_at_period_end"
	ModifierPause             = "pause"
	ModifierResume            = "resume"
)

// ModifierKey returns the modifier key for a subscription and an event.
func ModifierKey(event string, subscriptionID int64) string {
	return fmt.Sprintf("%s:%d", event, subscriptionID)
}
