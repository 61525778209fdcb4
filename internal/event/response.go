package event

import (
	"strconv"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// Response accumulates the outcome of processing one event. Its status is
// set once; later calls to Finalize are ignored.
type Response struct {
	SourceType domain.SourceType
	SourceID   string
	Status     domain.RequestStatus
	EventID    string
	EventType  string
	Message    string

	final bool
}

// NewResponse starts a response for env.
func NewResponse(env *Envelope, sourceType domain.SourceType) *Response {
	return &Response{
		SourceType: sourceType,
		EventID:    env.ID(),
		EventType:  env.Type(),
	}
}

// SetSourceID records the local record the event was correlated with.
func (r *Response) SetSourceID(id int64) *Response {
	r.SourceID = strconv.FormatInt(id, 10)
	return r
}

// Finalize sets the outcome unless one is already set.
func (r *Response) Finalize(status domain.RequestStatus, message string) *Response {
	if r.final {
		return r
	}
	r.Status = status
	r.Message = message
	r.final = true
	return r
}

// Finalized reports whether the outcome is set.
func (r *Response) Finalized() bool {
	return r.final
}

// Acknowledged reports whether the gateway should stop redelivering.
func (r *Response) Acknowledged() bool {
	return r.final && r.Status.Acknowledged()
}

// Result converts the response for the processed-event store.
func (r *Response) Result() domain.WebhookResult {
	res := domain.WebhookResult{
		SourceType: r.SourceType,
		SourceID:   r.SourceID,
		Status:     r.Status,
	}
	if !r.Status.Acknowledged() {
		res.Error = r.Message
	}
	return res
}
