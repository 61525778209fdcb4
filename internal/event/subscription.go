package event

import (
	"context"
	"time"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// SubscriptionEventTypes are the gateway subscription events.
var SubscriptionEventTypes = []string{
	domain.EventSubscriptionUpdated,
	domain.EventSubscriptionPaused,
	domain.EventSubscriptionResumed,
	domain.EventSubscriptionDeleted,
}

// ScheduleEventTypes are the gateway subscription schedule events.
var ScheduleEventTypes = []string{
	domain.EventScheduleCreated,
	domain.EventScheduleUpdated,
	domain.EventScheduleCanceled,
	domain.EventScheduleCompleted,
	domain.EventScheduleReleased,
}

// Remote subscription statuses that end the subscription.
const (
	remoteStatusCanceled          = "canceled"
	remoteStatusIncompleteExpired = "incomplete_expired"
	remoteStatusPastDue           = "past_due"
)

type subscriptionProcessor struct {
	Deps
}

// NewSubscriptionProcessor mirrors gateway subscription changes onto the
// local subscription.
func NewSubscriptionProcessor(deps Deps) Processor {
	p := &subscriptionProcessor{Deps: deps.withDefaults()}
	return &Pipeline[SubscriptionView, *domain.Subscription]{
		SourceType: domain.SourceSubscription,
		View:       (*Envelope).Subscription,
		Resolve:    p.resolve,
		RecordID:   subscriptionID,
		Mode:       subscriptionMode,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

func (p *subscriptionProcessor) resolve(ctx context.Context, _ *Envelope, v SubscriptionView) (*domain.Subscription, error) {
	return p.findSubscription(ctx, v.Metadata, v.ID, v.Schedule)
}

func (p *subscriptionProcessor) handle(ctx context.Context, env *Envelope, v SubscriptionView, sub *domain.Subscription) (domain.RequestStatus, error) {
	if sub.Status.IsTerminal() {
		return domain.RequestSucceeded, nil
	}

	switch env.Type() {
	case domain.EventSubscriptionUpdated:
		if v.Status == remoteStatusCanceled || v.Status == remoteStatusIncompleteExpired {
			return "", p.ended(ctx, v, sub)
		}
		return "", p.sync(ctx, v, sub)
	case domain.EventSubscriptionPaused:
		return p.paused(ctx, v, sub)
	case domain.EventSubscriptionResumed:
		return p.resumed(ctx, sub)
	case domain.EventSubscriptionDeleted:
		return "", p.ended(ctx, v, sub)
	}
	return "", ErrUnsupportedEvent.WithOp("subscription.handle")
}

// sync copies the cancellation, pause, dunning and payment method state of
// the gateway subscription.
func (p *subscriptionProcessor) sync(ctx context.Context, v SubscriptionView, sub *domain.Subscription) error {
	calc := p.Lifecycle.Calculator()
	now := p.now()
	causedBy := p.actorFor(sub, domain.ModifierCancelAtPeriodEnd, domain.ModifierPause, domain.ModifierResume)
	_, commanded := p.Lifecycle.Tracker().Peek(domain.ModifierCancelAtPeriodEnd, sub.ID)

	scheduled := false
	_, err := p.Lifecycle.Apply(ctx, sub, causedBy, func(s *domain.Subscription) (bool, error) {
		changed := false

		switch {
		case v.CancelScheduled():
			at := now
			if d := v.CancelDate(); d != nil {
				at = *d
			}
			ok, err := s.ScheduleCancellation(at)
			if err != nil {
				return false, err
			}
			scheduled = ok
			changed = changed || ok
		case s.HasPendingCancellation():
			changed = s.ClearScheduledCancellation() || changed
		}

		switch {
		case v.PauseCollection != nil && s.Status != domain.StatusPaused && (s.CanPause() || s.HasPendingSuspend()):
			ok, err := s.Pause(now, v.PauseCollection.ResumesAt)
			if err != nil {
				return false, err
			}
			changed = changed || ok
		case v.PauseCollection == nil && s.Status == domain.StatusPaused:
			ok, err := s.Resume(calc)
			if err != nil {
				return false, err
			}
			changed = changed || ok
		}

		if v.Status == remoteStatusPastDue && s.Status == domain.StatusActive {
			ok, err := s.MarkPastDue()
			if err != nil {
				return false, err
			}
			changed = changed || ok
		}

		if v.DefaultPaymentMethod != "" && s.CanUpdate() {
			ok, err := s.UpdatePaymentMethod(v.DefaultPaymentMethod)
			if err != nil {
				return false, err
			}
			changed = changed || ok
		}
		return changed, nil
	})
	if err != nil {
		return err
	}

	// Commands announce their own cancellations.
	if scheduled && !commanded {
		p.Notifier.CancellationScheduled(ctx, sub, causedBy)
	}
	return nil
}

func (p *subscriptionProcessor) paused(ctx context.Context, v SubscriptionView, sub *domain.Subscription) (domain.RequestStatus, error) {
	if sub.Status == domain.StatusPaused {
		return "", nil
	}
	if !sub.CanPause() && !sub.HasPendingSuspend() {
		return domain.RequestUnprocessable, nil
	}
	var resumesAt *time.Time
	if v.PauseCollection != nil {
		resumesAt = v.PauseCollection.ResumesAt
	}
	now := p.now()
	_, err := p.Lifecycle.Apply(ctx, sub, p.actorFor(sub, domain.ModifierPause), func(s *domain.Subscription) (bool, error) {
		return s.Pause(now, resumesAt)
	})
	return "", err
}

func (p *subscriptionProcessor) resumed(ctx context.Context, sub *domain.Subscription) (domain.RequestStatus, error) {
	if sub.Status == domain.StatusActive && !sub.HasPendingSuspend() {
		return "", nil
	}
	if !sub.CanResume() {
		return domain.RequestUnprocessable, nil
	}
	calc := p.Lifecycle.Calculator()
	_, err := p.Lifecycle.Apply(ctx, sub, p.actorFor(sub, domain.ModifierResume), func(s *domain.Subscription) (bool, error) {
		return s.Resume(calc)
	})
	return "", err
}

// ended closes a subscription the gateway ended. A scheduled cancellation
// that took effect expires it; anything else cancels it.
func (p *subscriptionProcessor) ended(ctx context.Context, v SubscriptionView, sub *domain.Subscription) error {
	at := p.now()
	if v.EndedAt != nil {
		at = *v.EndedAt
	} else if v.CanceledAt != nil {
		at = *v.CanceledAt
	}
	causedBy := p.actorFor(sub, domain.ModifierCancel, domain.ModifierCancelAtPeriodEnd)
	_, err := p.Lifecycle.Apply(ctx, sub, causedBy, func(s *domain.Subscription) (bool, error) {
		if s.HasPendingCancellation() {
			return s.Expire(at)
		}
		return s.MarkCanceled(at)
	})
	return err
}

type scheduleProcessor struct {
	Deps
}

// NewScheduleProcessor mirrors gateway subscription schedule changes onto
// the local subscription.
func NewScheduleProcessor(deps Deps) Processor {
	p := &scheduleProcessor{Deps: deps.withDefaults()}
	return &Pipeline[ScheduleView, *domain.Subscription]{
		SourceType: domain.SourceSubscription,
		View:       (*Envelope).Schedule,
		Resolve:    p.resolve,
		RecordID:   subscriptionID,
		Mode:       subscriptionMode,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

func (p *scheduleProcessor) resolve(ctx context.Context, _ *Envelope, v ScheduleView) (*domain.Subscription, error) {
	return p.findSubscription(ctx, v.Metadata, v.ID)
}

func (p *scheduleProcessor) handle(ctx context.Context, env *Envelope, v ScheduleView, sub *domain.Subscription) (domain.RequestStatus, error) {
	if sub.Status.IsTerminal() {
		return domain.RequestSucceeded, nil
	}

	switch env.Type() {
	case domain.EventScheduleCreated:
		return "", p.created(ctx, v, sub)
	case domain.EventScheduleUpdated:
		return "", p.updated(ctx, v, sub)
	case domain.EventScheduleCanceled:
		return "", p.closed(ctx, sub, v.CanceledAt, false)
	case domain.EventScheduleCompleted:
		return "", p.closed(ctx, sub, v.CompletedAt, true)
	case domain.EventScheduleReleased:
		return "", p.released(ctx, v, sub)
	}
	return "", ErrUnsupportedEvent.WithOp("schedule.handle")
}

func (p *scheduleProcessor) created(ctx context.Context, v ScheduleView, sub *domain.Subscription) error {
	changed, err := p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
		return s.LinkRemote(v.ID, domain.RemoteSchedule), nil
	})
	if err != nil {
		return err
	}
	if changed {
		p.Notifier.ScheduleCreated(ctx, sub)
	}
	return nil
}

// updated re-synchronizes the local subscription with its schedule. A
// next billing date that fell behind is moved to a fresh cycle from today.
func (p *scheduleProcessor) updated(ctx context.Context, v ScheduleView, sub *domain.Subscription) error {
	calc := p.Lifecycle.Calculator()
	now := p.now()
	causedBy := p.actorFor(sub, domain.ModifierCancelAtPeriodEnd)
	_, commanded := p.Lifecycle.Tracker().Peek(domain.ModifierCancelAtPeriodEnd, sub.ID)

	scheduled := false
	_, err := p.Lifecycle.Apply(ctx, sub, causedBy, func(s *domain.Subscription) (bool, error) {
		changed := false

		// Installment plans end through their charge count, not a marker.
		switch {
		case v.CancelScheduled() && !s.IsBounded() && v.CurrentPhaseEnd != nil:
			ok, err := s.ScheduleCancellation(*v.CurrentPhaseEnd)
			if err != nil {
				return false, err
			}
			scheduled = ok
			changed = changed || ok
		case !v.CancelScheduled() && s.HasPendingCancellation():
			changed = s.ClearScheduledCancellation() || changed
		}

		if s.Status == domain.StatusActive && s.NextBillingAt != nil && s.NextBillingAt.Before(now) {
			changed = s.SetNextBillingAt(calc.CalculateNextBillingDateFromToday(s.Schedule())) || changed
		}
		return changed, nil
	})
	if err != nil {
		return err
	}
	if scheduled && !commanded {
		p.Notifier.CancellationScheduled(ctx, sub, causedBy)
	}
	return nil
}

// closed ends the subscription of a canceled or completed schedule. A
// completed installment plan ends through its last paid invoice, which may
// arrive after the schedule event.
func (p *scheduleProcessor) closed(ctx context.Context, sub *domain.Subscription, endedAt *time.Time, completed bool) error {
	at := p.now()
	if endedAt != nil {
		at = *endedAt
	}
	causedBy := p.actorFor(sub, domain.ModifierCancel, domain.ModifierCancelAtPeriodEnd)
	_, err := p.Lifecycle.Apply(ctx, sub, causedBy, func(s *domain.Subscription) (bool, error) {
		switch {
		case completed && s.IsBounded():
			return s.Complete(at)
		case completed || s.HasPendingCancellation():
			return s.Expire(at)
		}
		return s.MarkCanceled(at)
	})
	return err
}

// released hands the subscription over to the plain gateway subscription
// the schedule managed.
func (p *scheduleProcessor) released(ctx context.Context, v ScheduleView, sub *domain.Subscription) error {
	if v.Subscription == "" {
		return nil
	}
	_, err := p.Lifecycle.Apply(ctx, sub, domain.ActorWebhook, func(s *domain.Subscription) (bool, error) {
		changed := s.LinkRemote(v.Subscription, domain.RemoteSubscription)
		return s.ClearScheduledCancellation() || changed, nil
	})
	return err
}
