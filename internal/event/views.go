package event

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// expandable decodes a field the gateway sends either as an id string or
// as an expanded object carrying that id.
type expandable string

func (x *expandable) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*x = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*x = expandable(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*x = expandable(obj.ID)
	return nil
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil || *sec == 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

// amount converts a gateway amount in the currency's minor unit to a
// decimal.
func amount(minor int64, currency string) decimal.Decimal {
	return domain.FromMinorUnits(minor, currency)
}

// PaymentIntentView is the part of a payment intent the engine reads.
type PaymentIntentView struct {
	ID               string
	Status           string
	Amount           decimal.Decimal
	Currency         string
	LatestCharge     string
	PaymentMethod    string
	Metadata         map[string]string
	LastPaymentError string
}

// PaymentIntent decodes the event object as a payment intent.
func (e *Envelope) PaymentIntent() (PaymentIntentView, error) {
	var raw struct {
		ID               string            `json:"id"`
		Object           string            `json:"object"`
		Status           string            `json:"status"`
		Amount           int64             `json:"amount"`
		Currency         string            `json:"currency"`
		LatestCharge     expandable        `json:"latest_charge"`
		PaymentMethod    expandable        `json:"payment_method"`
		Metadata         map[string]string `json:"metadata"`
		LastPaymentError *struct {
			Message string `json:"message"`
		} `json:"last_payment_error"`
	}
	if err := e.decode("event.payment_intent", &raw); err != nil {
		return PaymentIntentView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "payment_intent") {
		return PaymentIntentView{}, ErrUnsupportedEvent.WithOp("event.payment_intent")
	}

	v := PaymentIntentView{
		ID:            raw.ID,
		Status:        raw.Status,
		Amount:        amount(raw.Amount, raw.Currency),
		Currency:      raw.Currency,
		LatestCharge:  string(raw.LatestCharge),
		PaymentMethod: string(raw.PaymentMethod),
		Metadata:      raw.Metadata,
	}
	if raw.LastPaymentError != nil {
		v.LastPaymentError = raw.LastPaymentError.Message
	}
	return v, nil
}

// RefundView is one gateway refund.
type RefundView struct {
	ID            string
	Charge        string
	PaymentIntent string
	Amount        decimal.Decimal
	Currency      string
	Status        string
	Reason        string
	Metadata      map[string]string
}

// Failed reports whether the refund will never move money.
func (r RefundView) Failed() bool {
	return domain.RefundVoided(r.Status)
}

type rawRefund struct {
	ID            string            `json:"id"`
	Charge        expandable        `json:"charge"`
	PaymentIntent expandable        `json:"payment_intent"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason"`
	Metadata      map[string]string `json:"metadata"`
}

// view decodes the refund. Refunds nested in a charge may leave the
// currency to the charge.
func (r rawRefund) view(currency string) RefundView {
	if r.Currency != "" {
		currency = r.Currency
	}
	return RefundView{
		ID:            r.ID,
		Charge:        string(r.Charge),
		PaymentIntent: string(r.PaymentIntent),
		Amount:        amount(r.Amount, currency),
		Currency:      currency,
		Status:        r.Status,
		Reason:        r.Reason,
		Metadata:      r.Metadata,
	}
}

// Refund decodes the event object as a refund.
func (e *Envelope) Refund() (RefundView, error) {
	var raw struct {
		rawRefund
		Object string `json:"object"`
	}
	if err := e.decode("event.refund", &raw); err != nil {
		return RefundView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "refund") {
		return RefundView{}, ErrUnsupportedEvent.WithOp("event.refund")
	}
	return raw.view(""), nil
}

// ChargeView is the part of a charge the engine reads.
type ChargeView struct {
	ID             string
	PaymentIntent  string
	Amount         decimal.Decimal
	AmountRefunded decimal.Decimal
	Currency       string
	Refunded       bool

	// Refunds lists the refunds embedded in the charge. Recent API
	// versions omit them unless expanded.
	Refunds []RefundView
}

// Charge decodes the event object as a charge.
func (e *Envelope) Charge() (ChargeView, error) {
	var raw struct {
		ID             string     `json:"id"`
		Object         string     `json:"object"`
		PaymentIntent  expandable `json:"payment_intent"`
		Amount         int64      `json:"amount"`
		AmountRefunded int64      `json:"amount_refunded"`
		Currency       string     `json:"currency"`
		Refunded       bool       `json:"refunded"`
		Refunds        *struct {
			Data []rawRefund `json:"data"`
		} `json:"refunds"`
	}
	if err := e.decode("event.charge", &raw); err != nil {
		return ChargeView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "charge") {
		return ChargeView{}, ErrUnsupportedEvent.WithOp("event.charge")
	}

	v := ChargeView{
		ID:             raw.ID,
		PaymentIntent:  string(raw.PaymentIntent),
		Amount:         amount(raw.Amount, raw.Currency),
		AmountRefunded: amount(raw.AmountRefunded, raw.Currency),
		Currency:       raw.Currency,
		Refunded:       raw.Refunded,
	}
	if raw.Refunds != nil {
		for _, r := range raw.Refunds.Data {
			rv := r.view(raw.Currency)
			if rv.Charge == "" {
				rv.Charge = raw.ID
			}
			if rv.PaymentIntent == "" {
				rv.PaymentIntent = v.PaymentIntent
			}
			v.Refunds = append(v.Refunds, rv)
		}
	}
	return v, nil
}

// PauseCollection is the pause state of a gateway subscription.
type PauseCollection struct {
	Behavior  string
	ResumesAt *time.Time
}

// SubscriptionView is the part of a gateway subscription the engine reads.
type SubscriptionView struct {
	ID                   string
	Status               string
	CancelAtPeriodEnd    bool
	CancelAt             *time.Time
	CanceledAt           *time.Time
	EndedAt              *time.Time
	CurrentPeriodEnd     *time.Time
	PauseCollection      *PauseCollection
	Schedule             string
	DefaultPaymentMethod string
	Metadata             map[string]string
}

// CancelScheduled reports whether the subscription will end at a set date.
func (s SubscriptionView) CancelScheduled() bool {
	return s.CancelAtPeriodEnd || s.CancelAt != nil
}

// CancelDate returns when a scheduled cancellation takes effect.
func (s SubscriptionView) CancelDate() *time.Time {
	if s.CancelAt != nil {
		return s.CancelAt
	}
	return s.CurrentPeriodEnd
}

// Subscription decodes the event object as a gateway subscription.
func (e *Envelope) Subscription() (SubscriptionView, error) {
	var raw struct {
		ID                string `json:"id"`
		Object            string `json:"object"`
		Status            string `json:"status"`
		CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
		CancelAt          *int64 `json:"cancel_at"`
		CanceledAt        *int64 `json:"canceled_at"`
		EndedAt           *int64 `json:"ended_at"`
		CurrentPeriodEnd  *int64 `json:"current_period_end"`
		Items             struct {
			Data []struct {
				CurrentPeriodEnd *int64 `json:"current_period_end"`
			} `json:"data"`
		} `json:"items"`
		PauseCollection *struct {
			Behavior  string `json:"behavior"`
			ResumesAt *int64 `json:"resumes_at"`
		} `json:"pause_collection"`
		Schedule             expandable        `json:"schedule"`
		DefaultPaymentMethod expandable        `json:"default_payment_method"`
		Metadata             map[string]string `json:"metadata"`
	}
	if err := e.decode("event.subscription", &raw); err != nil {
		return SubscriptionView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "subscription") {
		return SubscriptionView{}, ErrUnsupportedEvent.WithOp("event.subscription")
	}

	v := SubscriptionView{
		ID:                   raw.ID,
		Status:               raw.Status,
		CancelAtPeriodEnd:    raw.CancelAtPeriodEnd,
		CancelAt:             unixPtr(raw.CancelAt),
		CanceledAt:           unixPtr(raw.CanceledAt),
		EndedAt:              unixPtr(raw.EndedAt),
		CurrentPeriodEnd:     unixPtr(raw.CurrentPeriodEnd),
		Schedule:             string(raw.Schedule),
		DefaultPaymentMethod: string(raw.DefaultPaymentMethod),
		Metadata:             raw.Metadata,
	}
	// Newer API versions moved the period onto the subscription items.
	if v.CurrentPeriodEnd == nil && len(raw.Items.Data) > 0 {
		v.CurrentPeriodEnd = unixPtr(raw.Items.Data[0].CurrentPeriodEnd)
	}
	if raw.PauseCollection != nil {
		v.PauseCollection = &PauseCollection{
			Behavior:  raw.PauseCollection.Behavior,
			ResumesAt: unixPtr(raw.PauseCollection.ResumesAt),
		}
	}
	return v, nil
}

// ScheduleView is the part of a gateway subscription schedule the engine
// reads.
type ScheduleView struct {
	ID              string
	Status          string
	Subscription    string
	EndBehavior     string
	CanceledAt      *time.Time
	CompletedAt     *time.Time
	ReleasedAt      *time.Time
	CurrentPhaseEnd *time.Time
	Metadata        map[string]string
}

// CancelScheduled reports whether the schedule cancels its subscription
// when the last phase ends.
func (s ScheduleView) CancelScheduled() bool {
	return s.EndBehavior == "cancel" && (s.Status == "active" || s.Status == "not_started")
}

// Schedule decodes the event object as a gateway subscription schedule.
func (e *Envelope) Schedule() (ScheduleView, error) {
	var raw struct {
		ID           string     `json:"id"`
		Object       string     `json:"object"`
		Status       string     `json:"status"`
		Subscription expandable `json:"subscription"`
		EndBehavior  string     `json:"end_behavior"`
		CanceledAt   *int64     `json:"canceled_at"`
		CompletedAt  *int64     `json:"completed_at"`
		ReleasedAt   *int64     `json:"released_at"`
		CurrentPhase *struct {
			EndDate *int64 `json:"end_date"`
		} `json:"current_phase"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := e.decode("event.schedule", &raw); err != nil {
		return ScheduleView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "subscription_schedule") {
		return ScheduleView{}, ErrUnsupportedEvent.WithOp("event.schedule")
	}

	v := ScheduleView{
		ID:           raw.ID,
		Status:       raw.Status,
		Subscription: string(raw.Subscription),
		EndBehavior:  raw.EndBehavior,
		CanceledAt:   unixPtr(raw.CanceledAt),
		CompletedAt:  unixPtr(raw.CompletedAt),
		ReleasedAt:   unixPtr(raw.ReleasedAt),
		Metadata:     raw.Metadata,
	}
	if raw.CurrentPhase != nil {
		v.CurrentPhaseEnd = unixPtr(raw.CurrentPhase.EndDate)
	}
	return v, nil
}

// Billing reasons the engine distinguishes.
const (
	BillingReasonSubscriptionCreate = "subscription_create"
	BillingReasonSubscriptionCycle  = "subscription_cycle"
)

// InvoiceView is the part of a subscription invoice the engine reads.
type InvoiceView struct {
	ID            string
	Status        string
	BillingReason string
	Customer      string
	Subscription  string
	PaymentIntent string
	Charge        string
	AmountPaid    decimal.Decimal
	AmountDue     decimal.Decimal
	Currency      string

	// SubscriptionMetadata is the metadata of the subscription the invoice
	// bills, as copied onto the invoice.
	SubscriptionMetadata map[string]string
}

// IsFirst reports whether the invoice is the subscription's initial one.
func (i InvoiceView) IsFirst() bool {
	return i.BillingReason == BillingReasonSubscriptionCreate
}

// PaymentKey returns the id renewal orders are deduplicated on: the
// payment intent, or the invoice itself when nothing was charged.
func (i InvoiceView) PaymentKey() string {
	if i.PaymentIntent != "" {
		return i.PaymentIntent
	}
	if i.AmountPaid.IsZero() && i.AmountDue.IsZero() {
		return i.ID
	}
	return ""
}

// Invoice decodes the event object as an invoice. Both the legacy
// top-level fields and the parent/payments layout of newer API versions
// are understood.
func (e *Envelope) Invoice() (InvoiceView, error) {
	var raw struct {
		ID                  string            `json:"id"`
		Object              string            `json:"object"`
		Status              string            `json:"status"`
		BillingReason       string            `json:"billing_reason"`
		Customer            expandable        `json:"customer"`
		Subscription        expandable        `json:"subscription"`
		PaymentIntent       expandable        `json:"payment_intent"`
		Charge              expandable        `json:"charge"`
		AmountPaid          int64             `json:"amount_paid"`
		AmountDue           int64             `json:"amount_due"`
		Currency            string            `json:"currency"`
		SubscriptionDetails *subscriptionRef  `json:"subscription_details"`
		Metadata            map[string]string `json:"metadata"`
		Parent              *struct {
			SubscriptionDetails *subscriptionRef `json:"subscription_details"`
		} `json:"parent"`
		Payments *struct {
			Data []struct {
				Payment struct {
					PaymentIntent expandable `json:"payment_intent"`
					Charge        expandable `json:"charge"`
				} `json:"payment"`
			} `json:"data"`
		} `json:"payments"`
	}
	if err := e.decode("event.invoice", &raw); err != nil {
		return InvoiceView{}, err
	}
	if raw.ID == "" || (raw.Object != "" && raw.Object != "invoice") {
		return InvoiceView{}, ErrUnsupportedEvent.WithOp("event.invoice")
	}

	v := InvoiceView{
		ID:            raw.ID,
		Status:        raw.Status,
		BillingReason: raw.BillingReason,
		Customer:      string(raw.Customer),
		Subscription:  string(raw.Subscription),
		PaymentIntent: string(raw.PaymentIntent),
		Charge:        string(raw.Charge),
		AmountPaid:    amount(raw.AmountPaid, raw.Currency),
		AmountDue:     amount(raw.AmountDue, raw.Currency),
		Currency:      raw.Currency,
	}

	details := raw.SubscriptionDetails
	if raw.Parent != nil && raw.Parent.SubscriptionDetails != nil {
		details = raw.Parent.SubscriptionDetails
	}
	if details != nil {
		if v.Subscription == "" {
			v.Subscription = string(details.Subscription)
		}
		v.SubscriptionMetadata = details.Metadata
	}
	if raw.Payments != nil && len(raw.Payments.Data) > 0 {
		p := raw.Payments.Data[0].Payment
		if v.PaymentIntent == "" {
			v.PaymentIntent = string(p.PaymentIntent)
		}
		if v.Charge == "" {
			v.Charge = string(p.Charge)
		}
	}
	return v, nil
}

type subscriptionRef struct {
	Subscription expandable        `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// AccountView identifies the account an application event is about.
type AccountView struct {
	Account         string
	ApplicationID   string
	ApplicationName string
}

// Application decodes the event object as a connected application.
func (e *Envelope) Application() (AccountView, error) {
	var raw struct {
		ID     string `json:"id"`
		Object string `json:"object"`
		Name   string `json:"name"`
	}
	if err := e.decode("event.application", &raw); err != nil {
		return AccountView{}, err
	}
	if raw.Object != "" && raw.Object != "application" {
		return AccountView{}, ErrUnsupportedEvent.WithOp("event.application")
	}
	return AccountView{Account: e.account, ApplicationID: raw.ID, ApplicationName: raw.Name}, nil
}
