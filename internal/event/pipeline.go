package event

import (
	"context"
	"log/slog"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
)

// Processor turns one event into local state changes.
type Processor interface {
	Process(ctx context.Context, env *Envelope) (*Response, error)
}

// Pipeline is a Processor assembled from steps. V is the typed view of the
// event object and R the local record it resolves to.
//
// View and Resolve are required. Guard and Handle are optional; a nil
// Handle acknowledges the event without changes.
type Pipeline[V, R any] struct {
	SourceType domain.SourceType

	// View decodes the event object. Errors are hard failures.
	View func(env *Envelope) (V, error)

	// Resolve finds the local record. ENOTFOUND errors end processing with
	// record_not_found.
	Resolve func(ctx context.Context, env *Envelope, view V) (R, error)

	// RecordID identifies the resolved record in the response.
	RecordID func(rec R) int64

	// Mode returns the gateway mode of the record. Events from the other
	// mode are not processed.
	Mode func(rec R) domain.PaymentMode

	// Guard rejects events that must not change the record. Internal
	// errors are hard failures; any other error means unprocessable.
	Guard func(ctx context.Context, env *Envelope, view V, rec R) error

	// Handle applies the event. An empty status means succeeded.
	Handle func(ctx context.Context, env *Envelope, view V, rec R) (domain.RequestStatus, error)

	Logger *slog.Logger
}

var _ Processor = (*Pipeline[PaymentIntentView, *domain.Order])(nil)

// Process runs the pipeline. A response is returned in every case.
func (p *Pipeline[V, R]) Process(ctx context.Context, env *Envelope) (*Response, error) {
	resp := NewResponse(env, p.SourceType)
	ctx = domain.NewContextWithEvent(ctx, env.Ref())
	ctx = domain.NewContextWithActor(ctx, domain.ActorWebhook)
	logger := middleware.GetLogger(ctx, p.Logger).With(
		"event_id", env.ID(),
		"event_type", env.Type(),
		"source_type", p.SourceType,
	)
	ctx = middleware.WithLogger(ctx, logger)

	view, err := p.View(env)
	if err != nil {
		logger.Error("failed to read event object", "error", err)
		resp.Finalize(domain.RequestError, err.Error())
		return resp, err
	}

	rec, err := p.Resolve(ctx, env, view)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			logger.Info("no local record for event", "reason", domain.ErrorMessage(err))
			resp.Finalize(domain.RequestRecordNotFound, domain.ErrorMessage(err))
			return resp, nil
		}
		logger.Error("failed to resolve local record", "error", err)
		resp.Finalize(domain.RequestError, err.Error())
		return resp, err
	}
	if p.RecordID != nil {
		resp.SetSourceID(p.RecordID(rec))
		logger = logger.With("source_id", resp.SourceID)
		ctx = middleware.WithLogger(ctx, logger)
	}

	if p.Mode != nil {
		if mode := p.Mode(rec); mode != "" && mode != env.Mode() {
			logger.Warn("event mode does not match record", "event_mode", env.Mode(), "record_mode", mode)
			resp.Finalize(domain.RequestUnprocessable, domain.ErrModeMismatch.Message)
			return resp, nil
		}
	}

	if p.Guard != nil {
		if err := p.Guard(ctx, env, view, rec); err != nil {
			if domain.ErrorCode(err) == domain.EINTERNAL {
				logger.Error("failed to check event guard", "error", err)
				resp.Finalize(domain.RequestError, err.Error())
				return resp, err
			}
			logger.Info("event rejected", "reason", domain.ErrorMessage(err))
			resp.Finalize(domain.RequestUnprocessable, domain.ErrorMessage(err))
			return resp, nil
		}
	}

	status := domain.RequestSucceeded
	if p.Handle != nil {
		s, err := p.Handle(ctx, env, view, rec)
		if err != nil {
			logger.Error("failed to apply event", "error", err)
			resp.Finalize(domain.RequestError, err.Error())
			return resp, err
		}
		if s != "" {
			status = s
		}
	}

	logger.Info("event processed", "request_status", status)
	return resp.Finalize(status, ""), nil
}

// rejected builds a guard error.
func rejected(op, format string, args ...any) error {
	return domain.Errorf(domain.EINVALID, op, format, args...)
}
