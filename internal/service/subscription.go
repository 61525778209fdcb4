// Package service implements the subscription commands. Every command
// calls the gateway first and only mutates local state once the gateway
// confirms, so a failed remote call never leaves the two sides apart.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/modifier"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// Dependencies wires a SubscriptionService.
type Dependencies struct {
	Subscriptions domain.SubscriptionRepository
	Orders        domain.OrderStore
	Gateway       billing.Gateway
	Tx            domain.Transactor
	Calculator    *schedule.Calculator
	Tracker       *modifier.Tracker
	Notifier      notify.Notifier
	Metrics       *telemetry.BusinessMetrics
	Logger        *slog.Logger
}

// SubscriptionService runs subscription commands and applies state
// transitions for the webhook pipeline.
type SubscriptionService struct {
	subs     domain.SubscriptionRepository
	orders   domain.OrderStore
	gateway  billing.Gateway
	tx       domain.Transactor
	calc     *schedule.Calculator
	tracker  *modifier.Tracker
	notifier notify.Notifier
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
	validate *validator.Validate
}

// NewSubscriptionService creates a SubscriptionService. Optional
// dependencies default to no-op implementations.
func NewSubscriptionService(deps Dependencies) *SubscriptionService {
	s := &SubscriptionService{
		subs:     deps.Subscriptions,
		orders:   deps.Orders,
		gateway:  deps.Gateway,
		tx:       deps.Tx,
		calc:     deps.Calculator,
		tracker:  deps.Tracker,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.tx == nil {
		s.tx = domain.NoTx{}
	}
	if s.calc == nil {
		s.calc = schedule.NewCalculator(nil)
	}
	if s.tracker == nil {
		s.tracker = modifier.NewTracker(modifier.DefaultTTL)
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Calculator returns the schedule calculator used for transitions.
func (s *SubscriptionService) Calculator() *schedule.Calculator {
	return s.calc
}

// Tracker returns the modifier tracker shared with the webhook pipeline.
func (s *SubscriptionService) Tracker() *modifier.Tracker {
	return s.tracker
}

// Get returns a subscription by id.
func (s *SubscriptionService) Get(ctx context.Context, id int64) (*domain.Subscription, error) {
	return s.subs.Get(ctx, id)
}

// List returns subscriptions matching filter.
func (s *SubscriptionService) List(ctx context.Context, filter domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	return s.subs.List(ctx, filter)
}

// Apply runs mutate on sub and, when it reports a change, persists sub and
// announces any status change. It is the single write path for both
// commands and webhook processors.
func (s *SubscriptionService) Apply(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor, mutate func(*domain.Subscription) (bool, error)) (bool, error) {
	from := sub.Status
	changed, err := mutate(sub)
	if err != nil || !changed {
		return false, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return false, err
	}
	if sub.Status != from {
		s.statusChanged(ctx, sub, from, causedBy)
	}
	return true, nil
}

func (s *SubscriptionService) statusChanged(ctx context.Context, sub *domain.Subscription, from domain.SubscriptionStatus, causedBy domain.Actor) {
	if s.metrics != nil {
		s.metrics.SubscriptionTransitions.WithLabelValues(string(from), string(sub.Status), string(causedBy)).Inc()
	}
	s.notifier.StatusChanged(ctx, notify.StatusChange{
		Subscription: sub,
		From:         from,
		To:           sub.Status,
		CausedBy:     causedBy,
		At:           s.calc.Now().UTC(),
	})
}

func (s *SubscriptionService) record(command string, err error) {
	if s.metrics != nil {
		s.metrics.RecordCommand(command, err)
	}
}

// actor resolves who a command runs on behalf of.
func actor(ctx context.Context, causedBy domain.Actor) domain.Actor {
	if causedBy != "" {
		return causedBy
	}
	return domain.ActorFromContext(ctx, domain.ActorSystem)
}

// CancelParams controls Cancel.
type CancelParams struct {
	// Force skips the status guard. Terminal subscriptions still refuse.
	Force bool

	// LocalOnly skips the gateway call. Used when the gateway can no longer
	// be reached for this subscription, e.g. after deauthorization.
	LocalOnly bool

	CausedBy domain.Actor
}

// Cancel cancels a subscription immediately. Canceling an already
// canceled subscription succeeds without calling the gateway.
func (s *SubscriptionService) Cancel(ctx context.Context, id int64, params CancelParams) (sub *domain.Subscription, err error) {
	const op = "subscription.cancel"
	defer func() { s.record("cancel", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusCanceled {
		return sub, nil
	}
	if sub.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus.WithOp(op)
	}
	if !params.Force && !sub.CanCancel() {
		return nil, domain.ErrCannotCancel.WithOp(op)
	}

	causedBy := actor(ctx, params.CausedBy)
	logger := middleware.GetLogger(ctx, s.logger).With("subscription_id", sub.ID, "caused_by", causedBy)

	if sub.IsLinked() && !params.LocalOnly {
		s.tracker.Mark(domain.ModifierCancel, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierCancel, sub.ID)

		var remote *billing.RemoteSubscription
		if sub.IsScheduleType() {
			remote, err = s.gateway.CancelSchedule(ctx, sub.TransactionID)
		} else {
			remote, err = s.gateway.CancelSubscription(ctx, sub.TransactionID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to cancel remote %s: %w", sub.TransactionID, err)
		}
		if !remote.IsTerminal() {
			logger.Warn("gateway did not confirm cancellation", "remote_status", remote.Status)
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
	}

	now := s.calc.Now().UTC()
	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		return sub.MarkCanceled(now)
	}); err != nil {
		return nil, err
	}

	logger.Info("subscription canceled", "force", params.Force, "local_only", params.LocalOnly)
	return sub, nil
}

// CancelAtPeriodEnd schedules cancellation for the end of the current
// period. A second request while one is pending is a no-op.
func (s *SubscriptionService) CancelAtPeriodEnd(ctx context.Context, id int64, causedBy domain.Actor) (sub *domain.Subscription, err error) {
	const op = "subscription.cancel_at_period_end"
	defer func() { s.record("cancel_at_period_end", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus.WithOp(op)
	}
	if sub.HasPendingCancellation() {
		return sub, nil
	}
	if !sub.CanCancel() {
		return nil, domain.ErrCannotCancel.WithOp(op)
	}

	causedBy = actor(ctx, causedBy)
	s.notifier.CancellationScheduling(ctx, sub, causedBy)

	at := s.calc.Now().UTC()
	if sub.NextBillingAt != nil {
		at = *sub.NextBillingAt
	}

	if sub.IsLinked() {
		s.tracker.Mark(domain.ModifierCancelAtPeriodEnd, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierCancelAtPeriodEnd, sub.ID)

		var remote *billing.RemoteSubscription
		if sub.IsScheduleType() {
			remote, err = s.gateway.CancelScheduleAtPeriodEnd(ctx, sub.TransactionID)
		} else {
			remote, err = s.gateway.CancelSubscriptionAtPeriodEnd(ctx, sub.TransactionID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to schedule remote cancellation of %s: %w", sub.TransactionID, err)
		}
		if !remote.IsCancelScheduled() {
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
		if remote.CancelAt != nil {
			at = remote.CancelAt.UTC()
		}
	}

	// Installment plans end through their charge count, not a marker.
	changed, err := s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		if sub.IsBounded() {
			return false, nil
		}
		return sub.ScheduleCancellation(at)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifier.CancellationScheduled(ctx, sub, causedBy)
	}
	return sub, nil
}

// PauseParams controls Pause.
type PauseParams struct {
	// EffectiveAt delays the pause. Nil or past values pause now.
	EffectiveAt *time.Time

	// ResumesAt is when billing restarts automatically. Optional.
	ResumesAt *time.Time

	CausedBy domain.Actor
}

// Pause stops billing on an open-ended subscription.
func (s *SubscriptionService) Pause(ctx context.Context, id int64, params PauseParams) (sub *domain.Subscription, err error) {
	const op = "subscription.pause"
	defer func() { s.record("pause", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusPaused || sub.HasPendingSuspend() {
		return sub, nil
	}
	if !sub.CanPause() {
		return nil, domain.ErrCannotPause.WithOp(op)
	}
	if sub.IsLinked() && sub.IsScheduleType() {
		return nil, domain.ErrUnsupportedRemoteKind.WithOp(op)
	}

	now := s.calc.Now().UTC()
	if params.ResumesAt != nil && !params.ResumesAt.After(now) {
		return nil, domain.Errorf(domain.EINVALID, op, "resume date must be in the future")
	}
	causedBy := actor(ctx, params.CausedBy)

	if sub.IsLinked() {
		s.tracker.Mark(domain.ModifierPause, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierPause, sub.ID)
		remote, err := s.gateway.PauseSubscription(ctx, billing.PauseSubscriptionParams{
			SubscriptionID: sub.TransactionID,
			ResumesAt:      params.ResumesAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to pause remote %s: %w", sub.TransactionID, err)
		}
		if !remote.Paused {
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
	}

	deferred := params.EffectiveAt != nil && params.EffectiveAt.After(now)
	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		if deferred {
			return sub.RequestPause(params.EffectiveAt.UTC(), params.ResumesAt)
		}
		return sub.Pause(now, params.ResumesAt)
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

// Resume restarts billing on a paused subscription, or withdraws a pending
// pause.
func (s *SubscriptionService) Resume(ctx context.Context, id int64, causedBy domain.Actor) (sub *domain.Subscription, err error) {
	const op = "subscription.resume"
	defer func() { s.record("resume", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusActive && !sub.HasPendingSuspend() {
		return sub, nil
	}
	if !sub.CanResume() {
		return nil, domain.ErrCannotResume.WithOp(op)
	}
	causedBy = actor(ctx, causedBy)

	if sub.IsLinked() && !sub.IsScheduleType() {
		s.tracker.Mark(domain.ModifierResume, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierResume, sub.ID)
		remote, err := s.gateway.ResumeSubscription(ctx, sub.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resume remote %s: %w", sub.TransactionID, err)
		}
		if remote.Paused {
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
	}

	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		return sub.Resume(s.calc)
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

// Suspend places an administrative hold. Remote subscriptions stop
// collecting and keep their invoices as drafts until reactivated.
func (s *SubscriptionService) Suspend(ctx context.Context, id int64, causedBy domain.Actor) (sub *domain.Subscription, err error) {
	const op = "subscription.suspend"
	defer func() { s.record("suspend", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusSuspended {
		return sub, nil
	}
	if sub.Status.IsTerminal() {
		return nil, domain.ErrTerminalStatus.WithOp(op)
	}
	if !sub.CanSuspend() {
		return nil, domain.ErrCannotSuspend.WithOp(op)
	}
	causedBy = actor(ctx, causedBy)

	if sub.IsLinked() && !sub.IsScheduleType() && sub.Status != domain.StatusPaused {
		s.tracker.Mark(domain.ModifierPause, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierPause, sub.ID)
		remote, err := s.gateway.PauseSubscription(ctx, billing.PauseSubscriptionParams{
			SubscriptionID: sub.TransactionID,
			Behavior:       "keep_as_draft",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to suspend remote %s: %w", sub.TransactionID, err)
		}
		if !remote.Paused {
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
	}

	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		return sub.Suspend()
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

// Reactivate lifts an administrative hold.
func (s *SubscriptionService) Reactivate(ctx context.Context, id int64, causedBy domain.Actor) (sub *domain.Subscription, err error) {
	const op = "subscription.reactivate"
	defer func() { s.record("reactivate", err) }()

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusActive {
		return sub, nil
	}
	if sub.Status != domain.StatusSuspended {
		return nil, domain.ErrNotSuspended.WithOp(op)
	}
	causedBy = actor(ctx, causedBy)

	if sub.IsLinked() && !sub.IsScheduleType() {
		s.tracker.Mark(domain.ModifierResume, sub.ID, causedBy)
		defer s.tracker.Consume(domain.ModifierResume, sub.ID)
		remote, err := s.gateway.ResumeSubscription(ctx, sub.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to reactivate remote %s: %w", sub.TransactionID, err)
		}
		if remote.Paused {
			return nil, ErrRemoteNotConfirmed.WithOp(op)
		}
	}

	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		return sub.Reactivate(s.calc)
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdatePaymentMethod changes the payment method used for renewals.
// Blocked once a cancellation is scheduled or the subscription has ended.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, id int64, paymentMethodID string, causedBy domain.Actor) (sub *domain.Subscription, err error) {
	const op = "subscription.update_payment_method"
	defer func() { s.record("update_payment_method", err) }()

	if paymentMethodID == "" {
		return nil, domain.Errorf(domain.EINVALID, op, "payment method is required")
	}

	sub, err = s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.CanUpdate() {
		return nil, domain.ErrUpdateBlocked.WithOp(op)
	}
	if sub.PaymentMethodID == paymentMethodID {
		return sub, nil
	}

	if sub.IsLinked() && !sub.IsScheduleType() {
		if _, err := s.gateway.UpdatePaymentMethod(ctx, sub.TransactionID, paymentMethodID); err != nil {
			return nil, fmt.Errorf("failed to update remote payment method: %w", err)
		}
	}

	causedBy = actor(ctx, causedBy)
	if _, err = s.Apply(ctx, sub, causedBy, func(sub *domain.Subscription) (bool, error) {
		return sub.UpdatePaymentMethod(paymentMethodID)
	}); err != nil {
		return nil, err
	}

	if sub.FirstOrderID != 0 {
		s.notifier.OrderNote(ctx, domain.OrderNote{
			OrderID:  sub.FirstOrderID,
			Note:     fmt.Sprintf("Subscription #%d payment method updated by %s.", sub.ID, domain.ActorLabel(causedBy)),
			CausedBy: causedBy,
		})
	}
	return sub, nil
}

// ProrationFor returns the unused part of the current period's charge.
// Remote subscriptions ask the gateway for the upcoming invoice and fall
// back to the local computation when the gateway no longer knows them.
func (s *SubscriptionService) ProrationFor(ctx context.Context, sub *domain.Subscription) (decimal.Decimal, error) {
	if sub.IsLinked() && !sub.IsScheduleType() {
		inv, err := s.gateway.GetUpcomingInvoice(ctx, sub.TransactionID)
		switch {
		case err == nil:
			return inv.AmountDue, nil
		case billing.IsNotFound(err):
			middleware.GetLogger(ctx, s.logger).Info("upcoming invoice not found, prorating locally",
				"subscription_id", sub.ID,
				"transaction_id", sub.TransactionID,
			)
		default:
			return decimal.Zero, fmt.Errorf("failed to preview upcoming invoice: %w", err)
		}
	}

	if sub.NextBillingAt == nil {
		return decimal.Zero, nil
	}

	last, err := s.lastOrderAmount(ctx, sub)
	if err != nil {
		return decimal.Zero, err
	}
	return s.calc.CalculateProrationAmountManually(sub.RecurringAmount, last, sub.CreatedAt, *sub.NextBillingAt), nil
}

// lastOrderAmount is the first order's total until a renewal has been
// billed, then the recurring amount.
func (s *SubscriptionService) lastOrderAmount(ctx context.Context, sub *domain.Subscription) (decimal.Decimal, error) {
	if sub.BilledCount > 1 || sub.FirstOrderID == 0 {
		return sub.RecurringAmount, nil
	}
	order, err := s.orders.GetOrder(ctx, sub.FirstOrderID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return sub.RecurringAmount, nil
		}
		return decimal.Zero, err
	}
	return order.Total, nil
}
