package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

type stubProcessor struct {
	calls int
}

func (s *stubProcessor) Process(_ context.Context, env *Envelope) (*Response, error) {
	s.calls++
	return NewResponse(env, domain.SourceOrder).Finalize(domain.RequestSucceeded, ""), nil
}

func TestDispatcher_Routes(t *testing.T) {
	d := NewDispatcher(discardLogger())
	p := &stubProcessor{}
	d.Register(p, "a.created", "a.updated")

	resp, err := d.Dispatch(context.Background(), NewEnvelope("evt_1", "a.updated", false, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, domain.RequestSucceeded, resp.Status)
	assert.True(t, d.Handles("a.created"))
	assert.Equal(t, []string{"a.created", "a.updated"}, d.EventTypes())
}

func TestDispatcher_UnknownEventType(t *testing.T) {
	d := NewDispatcher(nil)

	resp, err := d.Dispatch(context.Background(), NewEnvelope("evt_1", "customer.created", false, nil))
	require.NoError(t, err)

	assert.Equal(t, domain.SourceUnknown, resp.SourceType)
	assert.Equal(t, domain.RequestUnprocessable, resp.Status)
	assert.True(t, resp.Acknowledged())
}

func TestNewStripeDispatcher_HandledTypes(t *testing.T) {
	f := newFixture(t, jan1)
	d := NewStripeDispatcher(f.deps)

	for _, types := range [][]string{
		OrderEventTypes, RefundEventTypes, SubscriptionEventTypes, ScheduleEventTypes, InvoiceEventTypes,
		{domain.EventAccountDeauthorized},
	} {
		for _, typ := range types {
			assert.True(t, d.Handles(typ), typ)
		}
	}
	assert.Len(t, d.EventTypes(), 22)
}
