package event

import (
	"context"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
)

// Dispatcher routes events to processors by event type.
type Dispatcher struct {
	processors map[string]Processor
	logger     *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{processors: make(map[string]Processor), logger: logger}
}

// NewStripeDispatcher registers a processor for every handled event type.
func NewStripeDispatcher(deps Deps) *Dispatcher {
	d := NewDispatcher(deps.Logger)
	d.Register(NewOrderProcessor(deps), OrderEventTypes...)
	d.Register(NewRefundProcessor(deps), RefundEventTypes...)
	d.Register(NewSubscriptionProcessor(deps), SubscriptionEventTypes...)
	d.Register(NewScheduleProcessor(deps), ScheduleEventTypes...)
	d.Register(NewInvoiceProcessor(deps), InvoiceEventTypes...)
	d.Register(NewAccountProcessor(deps), domain.EventAccountDeauthorized)
	return d
}

// Register routes eventTypes to p, replacing earlier registrations.
func (d *Dispatcher) Register(p Processor, eventTypes ...string) {
	for _, t := range eventTypes {
		d.processors[t] = p
	}
}

// Handles reports whether a processor is registered for eventType.
func (d *Dispatcher) Handles(eventType string) bool {
	_, ok := d.processors[eventType]
	return ok
}

// EventTypes returns the registered event types, sorted.
func (d *Dispatcher) EventTypes() []string {
	types := lo.Keys(d.processors)
	slices.Sort(types)
	return types
}

// Dispatch processes env. Unknown event types are acknowledged as
// unprocessable so the gateway stops sending them.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope) (*Response, error) {
	p, ok := d.processors[env.Type()]
	if !ok {
		middleware.GetLogger(ctx, d.logger).Debug("ignoring unhandled event type",
			"event_id", env.ID(),
			"event_type", env.Type(),
		)
		return NewResponse(env, domain.SourceUnknown).Finalize(domain.RequestUnprocessable, "unhandled event type"), nil
	}
	return p.Process(ctx, env)
}
