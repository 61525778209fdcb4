package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
)

// Subscription is a recurring or fixed-installment billing arrangement
// tied to the order it originated from.
//
// Transition methods mutate the value in memory and report whether anything
// changed. Calling a transition whose target is the current state is a no-op
// that returns false and no error. Persisting and notifying is the caller's
// job.
type Subscription struct {
	ID               int64
	CustomerID       int64
	FirstOrderID     int64
	FirstOrderItemID int64

	Period       schedule.Period
	Frequency    int
	BillingTotal *int
	BilledCount  int

	InitialAmount   decimal.Decimal
	RecurringAmount decimal.Decimal
	CurrencyCode    string

	// TransactionID is the gateway subscription or subscription schedule id.
	TransactionID string

	// RemoteKind is the stored kind of TransactionID. Empty for rows written
	// before the column existed.
	RemoteKind RemoteKind

	PaymentMethodID string

	Status SubscriptionStatus
	Mode   PaymentMode
	Source Source

	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	TrialStartedAt *time.Time
	TrialEndedAt   *time.Time
	NextBillingAt  *time.Time
	ExpiredAt      *time.Time
	CanceledAt     *time.Time

	// SuspendedAt marks a pause that was requested or is in effect.
	SuspendedAt *time.Time

	// ResumedAt is the scheduled resume date, consumed by the next
	// billing calculation.
	ResumedAt *time.Time

	// ExpiresAt marks a cancellation scheduled for the end of the period.
	ExpiresAt *time.Time
}

// IsLinked reports whether the subscription references a gateway object.
func (s *Subscription) IsLinked() bool {
	return s.TransactionID != ""
}

// IsScheduleType reports whether TransactionID names a gateway subscription
// schedule. The stored RemoteKind wins over the id prefix.
func (s *Subscription) IsScheduleType() bool {
	if s.RemoteKind != "" {
		return s.RemoteKind == RemoteSchedule
	}
	return RemoteKindFromID(s.TransactionID) == RemoteSchedule
}

// IsBounded reports whether the subscription has a fixed number of charges.
func (s *Subscription) IsBounded() bool {
	return s.BillingTotal != nil
}

// HasPendingCancellation reports whether a period-end cancellation is scheduled.
func (s *Subscription) HasPendingCancellation() bool {
	return s.ExpiresAt != nil
}

// HasPendingSuspend reports whether a pause was requested or is in effect.
func (s *Subscription) HasPendingSuspend() bool {
	return s.SuspendedAt != nil
}

// CanCancel reports whether an unforced cancel is permitted.
func (s *Subscription) CanCancel() bool {
	switch s.Status {
	case StatusActive, StatusPending, StatusSuspended, StatusProcessing:
		return true
	}
	return false
}

// CanPause reports whether the subscription may be paused.
func (s *Subscription) CanPause() bool {
	if s.IsBounded() || s.HasPendingSuspend() {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusPastDue
}

// CanResume reports whether the subscription may be resumed.
func (s *Subscription) CanResume() bool {
	return s.Status == StatusPaused || (s.Status == StatusActive && s.HasPendingSuspend())
}

// CanSuspend reports whether an administrative hold may be placed.
func (s *Subscription) CanSuspend() bool {
	switch s.Status {
	case StatusActive, StatusPastDue, StatusPaused:
		return true
	}
	return false
}

// CanUpdate reports whether customer updates such as a payment method
// change are accepted.
func (s *Subscription) CanUpdate() bool {
	if s.HasPendingCancellation() {
		return false
	}
	return s.Status != StatusCanceled && s.Status != StatusCompleted
}

// AcceptsRenewal reports whether a recurring charge may be recorded.
func (s *Subscription) AcceptsRenewal() bool {
	return s.Status == StatusActive || s.Status == StatusPastDue
}

// Schedule returns the schedule view used by the calculator.
// Subscriptions that have not started are anchored at CreatedAt.
func (s *Subscription) Schedule() schedule.Schedule {
	started := s.CreatedAt
	if s.StartedAt != nil {
		started = *s.StartedAt
	}
	return schedule.Schedule{
		Period:        s.Period,
		Frequency:     s.Frequency,
		BillingTotal:  s.BillingTotal,
		BilledCount:   s.BilledCount,
		StartedAt:     started,
		NextBillingAt: s.NextBillingAt,
		ResumedAt:     s.ResumedAt,
	}
}

// LinkRemote records the gateway object backing the subscription.
func (s *Subscription) LinkRemote(transactionID string, kind RemoteKind) bool {
	if kind == "" {
		kind = RemoteKindFromID(transactionID)
	}
	if s.TransactionID == transactionID && s.RemoteKind == kind {
		return false
	}
	s.TransactionID = transactionID
	s.RemoteKind = kind
	return true
}

// SetNextBillingAt moves the next billing date forward. Earlier dates are
// ignored.
func (s *Subscription) SetNextBillingAt(t time.Time) bool {
	if s.NextBillingAt != nil && !t.After(*s.NextBillingAt) {
		return false
	}
	s.NextBillingAt = &t
	return true
}

// Activate starts the subscription after its first successful charge.
func (s *Subscription) Activate(calc *schedule.Calculator, at time.Time) (bool, error) {
	switch s.Status {
	case StatusActive:
		return false, nil
	case StatusPending, StatusProcessing:
	default:
		if s.Status.IsTerminal() {
			return false, ErrTerminalStatus.WithOp("subscription.activate")
		}
		return false, Errorf(EINVALID, "subscription.activate", "cannot activate a %s subscription", s.Status)
	}

	s.StartedAt = &at
	s.BilledCount = 0
	s.NextBillingAt = nil
	next := calc.CalculateNextBillingDate(s.Schedule())
	s.BilledCount = 1
	s.NextBillingAt = &next.At
	s.Status = StatusActive

	if end, ok := calc.CalculateEndDate(s.Schedule()); ok {
		s.EndedAt = &end
		if s.BilledCount >= *s.BillingTotal {
			s.Status = StatusCompleted
			s.NextBillingAt = nil
		}
	}
	return true, nil
}

// MarkProcessing records that the first payment is in flight.
func (s *Subscription) MarkProcessing() (bool, error) {
	switch s.Status {
	case StatusProcessing:
		return false, nil
	case StatusPending:
		s.Status = StatusProcessing
		return true, nil
	}
	return false, Errorf(EINVALID, "subscription.processing", "cannot mark a %s subscription as processing", s.Status)
}

// MarkCanceled moves the subscription to canceled.
func (s *Subscription) MarkCanceled(at time.Time) (bool, error) {
	if s.Status == StatusCanceled {
		return false, nil
	}
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.cancel")
	}
	s.Status = StatusCanceled
	s.CanceledAt = &at
	s.EndedAt = &at
	s.ExpiresAt = nil
	s.NextBillingAt = nil
	return true, nil
}

// ScheduleCancellation sets the period-end cancellation marker. A second
// call while a marker is set leaves the first marker in place.
func (s *Subscription) ScheduleCancellation(at time.Time) (bool, error) {
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.cancel_at_period_end")
	}
	if s.HasPendingCancellation() {
		return false, nil
	}
	s.ExpiresAt = &at
	return true, nil
}

// ClearScheduledCancellation removes the period-end cancellation marker.
func (s *Subscription) ClearScheduledCancellation() bool {
	if !s.HasPendingCancellation() || s.Status.IsTerminal() {
		return false
	}
	s.ExpiresAt = nil
	return true
}

// RequestPause sets the pending-suspend marker without changing status.
func (s *Subscription) RequestPause(effectiveAt time.Time, resumeAt *time.Time) (bool, error) {
	if s.Status == StatusPaused || s.HasPendingSuspend() {
		return false, nil
	}
	if !s.CanPause() {
		return false, ErrCannotPause.WithOp("subscription.request_pause")
	}
	s.SuspendedAt = &effectiveAt
	s.ResumedAt = resumeAt
	return true, nil
}

// Pause moves the subscription to paused. A previously requested pause is
// allowed to take effect.
func (s *Subscription) Pause(at time.Time, resumeAt *time.Time) (bool, error) {
	if s.Status == StatusPaused {
		return false, nil
	}
	requested := s.HasPendingSuspend() && (s.Status == StatusActive || s.Status == StatusPastDue)
	if !requested && !s.CanPause() {
		return false, ErrCannotPause.WithOp("subscription.pause")
	}
	if s.SuspendedAt == nil {
		s.SuspendedAt = &at
	}
	if resumeAt != nil {
		s.ResumedAt = resumeAt
	}
	s.Status = StatusPaused
	return true, nil
}

// Resume reactivates a paused subscription, or withdraws a pause request on
// an active one.
func (s *Subscription) Resume(calc *schedule.Calculator) (bool, error) {
	if s.Status == StatusActive && !s.HasPendingSuspend() {
		return false, nil
	}
	if !s.CanResume() {
		return false, ErrCannotResume.WithOp("subscription.resume")
	}

	if s.Status == StatusActive {
		s.SuspendedAt = nil
		s.ResumedAt = nil
		return true, nil
	}

	if s.ResumedAt == nil {
		now := calc.Now()
		s.ResumedAt = &now
	}
	next := calc.CalculateNextBillingDate(s.Schedule())
	s.NextBillingAt = &next.At
	s.SuspendedAt = nil
	s.ResumedAt = nil
	s.Status = StatusActive
	return true, nil
}

// Suspend places an administrative hold.
func (s *Subscription) Suspend() (bool, error) {
	if s.Status == StatusSuspended {
		return false, nil
	}
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.suspend")
	}
	if !s.CanSuspend() {
		return false, ErrCannotSuspend.WithOp("subscription.suspend")
	}
	s.Status = StatusSuspended
	return true, nil
}

// Reactivate lifts an administrative hold. A next billing date that passed
// during the hold is moved to a fresh cycle starting now.
func (s *Subscription) Reactivate(calc *schedule.Calculator) (bool, error) {
	if s.Status == StatusActive {
		return false, nil
	}
	if s.Status != StatusSuspended {
		return false, ErrNotSuspended.WithOp("subscription.reactivate")
	}
	if now := calc.Now(); s.NextBillingAt != nil && s.NextBillingAt.Before(now) {
		s.SetNextBillingAt(calc.CalculateNextBillingDateFromToday(s.Schedule()))
	}
	s.Status = StatusActive
	return true, nil
}

// RecordRenewal counts a successful recurring charge and advances the
// schedule. Bounded subscriptions complete once every charge is collected.
func (s *Subscription) RecordRenewal(calc *schedule.Calculator, at time.Time) (bool, error) {
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.renew")
	}
	if !s.AcceptsRenewal() {
		return false, Errorf(EINVALID, "subscription.renew", "cannot renew a %s subscription", s.Status)
	}

	next := calc.CalculateNextBillingDate(s.Schedule())
	s.BilledCount++
	s.NextBillingAt = &next.At
	if next.ClearResumedAt {
		s.ResumedAt = nil
	}
	s.Status = StatusActive

	if s.IsBounded() && s.BilledCount >= *s.BillingTotal {
		s.Status = StatusCompleted
		s.NextBillingAt = nil
		if s.EndedAt == nil {
			s.EndedAt = &at
		}
	}
	return true, nil
}

// MarkPastDue records a failed recurring charge.
func (s *Subscription) MarkPastDue() (bool, error) {
	switch s.Status {
	case StatusPastDue:
		return false, nil
	case StatusActive:
		s.Status = StatusPastDue
		return true, nil
	}
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.past_due")
	}
	return false, Errorf(EINVALID, "subscription.past_due", "cannot mark a %s subscription as past due", s.Status)
}

// Expire ends a subscription whose scheduled cancellation took effect.
func (s *Subscription) Expire(at time.Time) (bool, error) {
	if s.Status == StatusExpired {
		return false, nil
	}
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.expire")
	}
	s.Status = StatusExpired
	s.ExpiredAt = &at
	s.EndedAt = &at
	s.NextBillingAt = nil
	return true, nil
}

// Complete ends a bounded subscription once every installment is billed.
// It leaves the subscription alone while installments remain.
func (s *Subscription) Complete(at time.Time) (bool, error) {
	if !s.IsBounded() || s.BilledCount < *s.BillingTotal {
		return false, nil
	}
	if s.Status == StatusCompleted {
		return false, nil
	}
	if s.Status.IsTerminal() {
		return false, ErrTerminalStatus.WithOp("subscription.complete")
	}
	s.Status = StatusCompleted
	s.NextBillingAt = nil
	if s.EndedAt == nil {
		s.EndedAt = &at
	}
	return true, nil
}

// Abandon gives up on a subscription whose first payment never succeeded.
func (s *Subscription) Abandon() (bool, error) {
	switch s.Status {
	case StatusAbandoned:
		return false, nil
	case StatusPending, StatusProcessing:
		s.Status = StatusAbandoned
		return true, nil
	}
	return false, Errorf(EINVALID, "subscription.abandon", "cannot abandon a %s subscription", s.Status)
}

// UpdatePaymentMethod replaces the payment method used for renewals.
func (s *Subscription) UpdatePaymentMethod(paymentMethodID string) (bool, error) {
	if !s.CanUpdate() {
		return false, ErrUpdateBlocked.WithOp("subscription.update_payment_method")
	}
	if s.PaymentMethodID == paymentMethodID {
		return false, nil
	}
	s.PaymentMethodID = paymentMethodID
	return true, nil
}
