package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

func pendingSubscription(id, orderID int64) *domain.Subscription {
	sub := activeSubscription(id, "")
	sub.FirstOrderID = orderID
	sub.Status = domain.StatusPending
	sub.BilledCount = 0
	sub.StartedAt = nil
	sub.NextBillingAt = nil
	return sub
}

func paymentIntent(t *testing.T, eventType string) *Envelope {
	return envelope(t, "evt_pi", eventType, map[string]any{
		"id":            "pi_1",
		"object":        "payment_intent",
		"status":        "succeeded",
		"amount":        2500,
		"currency":      "usd",
		"latest_charge": "ch_1",
		"last_payment_error": map[string]any{
			"message": "Your card was declined.",
		},
	})
}

func TestOrderProcessor_Succeeded(t *testing.T) {
	f := newFixture(t, jan1)
	f.store.putOrder(pendingOrder(100, "pi_1"))
	f.store.putSub(pendingSubscription(1, 100))

	resp, err := f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentSucceeded))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSucceeded, resp.Status)
	assert.Equal(t, domain.SourceOrder, resp.SourceType)
	assert.Equal(t, "100", resp.SourceID)

	o := f.store.order(100)
	assert.Equal(t, domain.OrderProcessing, o.Status)
	assert.Equal(t, "ch_1", o.ChargeID)

	sub := f.store.sub(1)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, feb1, *sub.NextBillingAt)
	require.Len(t, f.notes.changes, 1)
	assert.Equal(t, domain.ActorWebhook, f.notes.changes[0].CausedBy)

	// Redelivery finds the order already paid.
	resp, err = f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentSucceeded))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestUnprocessable, resp.Status)
	assert.Len(t, f.notes.changes, 1)
}

func TestOrderProcessor_Guards(t *testing.T) {
	tests := []struct {
		name   string
		order  func() *domain.Order
		event  string
		want   domain.RequestStatus
		status domain.OrderStatus
	}{
		{
			name:  "unknown payment",
			order: func() *domain.Order { return pendingOrder(100, "pi_other") },
			event: domain.EventPaymentIntentSucceeded,
			want:  domain.RequestRecordNotFound,
		},
		{
			name: "other gateway",
			order: func() *domain.Order {
				o := pendingOrder(100, "pi_1")
				o.PaymentMethod = "paypal"
				return o
			},
			event: domain.EventPaymentIntentSucceeded,
			want:  domain.RequestUnprocessable,
		},
		{
			name: "live order",
			order: func() *domain.Order {
				o := pendingOrder(100, "pi_1")
				o.Mode = domain.ModeLive
				return o
			},
			event: domain.EventPaymentIntentSucceeded,
			want:  domain.RequestUnprocessable,
		},
		{
			name: "failed order can still succeed",
			order: func() *domain.Order {
				o := pendingOrder(100, "pi_1")
				o.Status = domain.OrderFailed
				return o
			},
			event:  domain.EventPaymentIntentSucceeded,
			want:   domain.RequestSucceeded,
			status: domain.OrderProcessing,
		},
		{
			name: "on hold order settles",
			order: func() *domain.Order {
				o := pendingOrder(100, "pi_1")
				o.Status = domain.OrderOnHold
				return o
			},
			event:  domain.EventPaymentIntentFailed,
			want:   domain.RequestSucceeded,
			status: domain.OrderFailed,
		},
		{
			name: "on hold order ignores processing",
			order: func() *domain.Order {
				o := pendingOrder(100, "pi_1")
				o.Status = domain.OrderOnHold
				return o
			},
			event: domain.EventPaymentIntentProcessing,
			want:  domain.RequestUnprocessable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, jan1)
			f.store.putOrder(tt.order())

			resp, err := f.dispatch(t, paymentIntent(t, tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
			if tt.status != "" {
				assert.Equal(t, tt.status, f.store.order(100).Status)
			}
		})
	}
}

func TestOrderProcessor_Canceled(t *testing.T) {
	f := newFixture(t, jan1)
	f.store.putOrder(pendingOrder(100, "pi_1"))
	f.store.putSub(pendingSubscription(1, 100))

	resp, err := f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentCanceled))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSucceeded, resp.Status)

	assert.Equal(t, domain.OrderCanceled, f.store.order(100).Status)
	assert.Equal(t, domain.StatusAbandoned, f.store.sub(1).Status)
}

func TestOrderProcessor_ProcessingThenSucceeded(t *testing.T) {
	f := newFixture(t, jan1)
	f.store.putOrder(pendingOrder(100, "pi_1"))
	f.store.putSub(pendingSubscription(1, 100))

	_, err := f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentProcessing))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOnHold, f.store.order(100).Status)
	assert.Equal(t, domain.StatusProcessing, f.store.sub(1).Status)

	resp, err := f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentSucceeded))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSucceeded, resp.Status)
	assert.Equal(t, domain.StatusActive, f.store.sub(1).Status)
}

func TestOrderProcessor_FailedNotes(t *testing.T) {
	f := newFixture(t, jan1)
	f.store.putOrder(pendingOrder(100, "pi_1"))

	_, err := f.dispatch(t, paymentIntent(t, domain.EventPaymentIntentFailed))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderFailed, f.store.order(100).Status)
	assert.Equal(t, []string{"Payment failed: Your card was declined."}, f.notes.texts)
}
