package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

type record struct {
	id   int64
	mode domain.PaymentMode
}

func testPipeline() *Pipeline[string, record] {
	return &Pipeline[string, record]{
		SourceType: domain.SourceOrder,
		View:       func(*Envelope) (string, error) { return "pi_1", nil },
		Resolve: func(context.Context, *Envelope, string) (record, error) {
			return record{id: 7, mode: domain.ModeTest}, nil
		},
		RecordID: func(r record) int64 { return r.id },
		Mode:     func(r record) domain.PaymentMode { return r.mode },
		Logger:   discardLogger(),
	}
}

func TestPipeline_Outcomes(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		modify     func(p *Pipeline[string, record])
		livemode   bool
		wantStatus domain.RequestStatus
		wantErr    error
	}{
		{
			name:       "succeeded",
			modify:     func(*Pipeline[string, record]) {},
			wantStatus: domain.RequestSucceeded,
		},
		{
			name: "view error",
			modify: func(p *Pipeline[string, record]) {
				p.View = func(*Envelope) (string, error) { return "", ErrUnsupportedEvent }
			},
			wantStatus: domain.RequestError,
			wantErr:    ErrUnsupportedEvent,
		},
		{
			name: "record not found",
			modify: func(p *Pipeline[string, record]) {
				p.Resolve = func(context.Context, *Envelope, string) (record, error) {
					return record{}, domain.ErrOrderNotFound
				}
			},
			wantStatus: domain.RequestRecordNotFound,
		},
		{
			name: "resolve failure",
			modify: func(p *Pipeline[string, record]) {
				p.Resolve = func(context.Context, *Envelope, string) (record, error) { return record{}, boom }
			},
			wantStatus: domain.RequestError,
			wantErr:    boom,
		},
		{
			name:       "mode mismatch",
			modify:     func(*Pipeline[string, record]) {},
			livemode:   true,
			wantStatus: domain.RequestUnprocessable,
		},
		{
			name: "guard rejects",
			modify: func(p *Pipeline[string, record]) {
				p.Guard = func(context.Context, *Envelope, string, record) error {
					return rejected("test.guard", "already paid")
				}
			},
			wantStatus: domain.RequestUnprocessable,
		},
		{
			name: "guard fails internally",
			modify: func(p *Pipeline[string, record]) {
				p.Guard = func(context.Context, *Envelope, string, record) error { return boom }
			},
			wantStatus: domain.RequestError,
			wantErr:    boom,
		},
		{
			name: "handler error",
			modify: func(p *Pipeline[string, record]) {
				p.Handle = func(context.Context, *Envelope, string, record) (domain.RequestStatus, error) {
					return "", boom
				}
			},
			wantStatus: domain.RequestError,
			wantErr:    boom,
		},
		{
			name: "refined status",
			modify: func(p *Pipeline[string, record]) {
				p.Handle = func(context.Context, *Envelope, string, record) (domain.RequestStatus, error) {
					return domain.RequestRecordDeleted, nil
				}
			},
			wantStatus: domain.RequestRecordDeleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPipeline()
			tt.modify(p)
			env := NewEnvelope("evt_1", domain.EventPaymentIntentSucceeded, tt.livemode, []byte(`{}`))

			resp, err := p.Process(context.Background(), env)

			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "evt_1", resp.EventID)
			assert.Equal(t, domain.SourceOrder, resp.SourceType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipeline_HandlerSeesWebhookContext(t *testing.T) {
	p := testPipeline()
	p.Handle = func(ctx context.Context, env *Envelope, _ string, _ record) (domain.RequestStatus, error) {
		assert.True(t, domain.IsWebhook(ctx))
		assert.Equal(t, domain.ActorWebhook, domain.ActorFromContext(ctx, domain.ActorSystem))
		ref, ok := domain.EventFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, env.ID(), ref.ID)
		return "", nil
	}

	resp, err := p.Process(context.Background(), NewEnvelope("evt_9", "x", false, []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, "7", resp.SourceID)
}

func TestResponse_FinalizeOnce(t *testing.T) {
	r := NewResponse(NewEnvelope("evt_1", "x", false, nil), domain.SourceOrder)
	assert.False(t, r.Acknowledged())

	r.Finalize(domain.RequestError, "boom")
	r.Finalize(domain.RequestSucceeded, "")

	assert.True(t, r.Finalized())
	assert.Equal(t, domain.RequestError, r.Status)
	assert.False(t, r.Acknowledged())
	assert.Equal(t, domain.WebhookResult{SourceType: domain.SourceOrder, Status: domain.RequestError, Error: "boom"}, r.Result())
}
