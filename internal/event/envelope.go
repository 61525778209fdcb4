// Package event turns verified gateway notifications into subscription and
// order state changes.
//
// An Envelope wraps one notification. Typed views decode the notification's
// object on demand and never modify the payload. Processors resolve the
// local record an event refers to, guard against re-delivery and apply the
// change; every outcome, including failures, is reported as a Response.
package event

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// Envelope is an immutable inbound gateway notification.
type Envelope struct {
	id         string
	typ        string
	livemode   bool
	created    time.Time
	account    string
	apiVersion string
	object     []byte
	previous   map[string]any
}

// ParseEnvelope decodes a verified webhook payload.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, domain.WrapError(err, domain.EINVALID, "event.parse", ErrMalformedEvent.Message)
	}
	if evt.ID == "" || evt.Type == "" || evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, ErrMalformedEvent.WithOp("event.parse")
	}

	env := &Envelope{
		id:         evt.ID,
		typ:        string(evt.Type),
		livemode:   evt.Livemode,
		account:    evt.Account,
		apiVersion: evt.APIVersion,
		object:     bytes.Clone(evt.Data.Raw),
		previous:   maps.Clone(evt.Data.PreviousAttributes),
	}
	if evt.Created > 0 {
		env.created = time.Unix(evt.Created, 0).UTC()
	}
	return env, nil
}

// NewEnvelope builds an envelope around an already decoded object.
func NewEnvelope(id, eventType string, livemode bool, object []byte) *Envelope {
	return &Envelope{
		id:       id,
		typ:      eventType,
		livemode: livemode,
		object:   bytes.Clone(object),
	}
}

func (e *Envelope) ID() string         { return e.id }
func (e *Envelope) Type() string       { return e.typ }
func (e *Envelope) Livemode() bool     { return e.livemode }
func (e *Envelope) Created() time.Time { return e.created }
func (e *Envelope) Account() string    { return e.account }
func (e *Envelope) APIVersion() string { return e.apiVersion }

// Mode returns the gateway mode the event was sent under.
func (e *Envelope) Mode() domain.PaymentMode {
	return domain.ModeFromLivemode(e.livemode)
}

// Object returns a copy of the raw event object.
func (e *Envelope) Object() []byte {
	return bytes.Clone(e.object)
}

// PreviousAttributes returns a shallow copy of the changed attributes sent
// with *.updated events.
func (e *Envelope) PreviousAttributes() map[string]any {
	return maps.Clone(e.previous)
}

// Ref identifies the event for context propagation.
func (e *Envelope) Ref() domain.EventRef {
	return domain.EventRef{ID: e.id, Type: e.typ, Mode: e.Mode()}
}

func (e *Envelope) decode(op string, v any) error {
	if err := json.Unmarshal(e.object, v); err != nil {
		return domain.WrapError(err, domain.EINVALID, op, ErrMalformedEvent.Message)
	}
	return nil
}
