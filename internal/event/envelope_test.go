package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

func TestParseEnvelope(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "invoice.paid",
		"livemode": true,
		"created": 1735689600,
		"api_version": "2025-03-31.basil",
		"data": {
			"object": {"id": "in_1", "object": "invoice"},
			"previous_attributes": {"status": "open"}
		}
	}`)

	env, err := ParseEnvelope(payload)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", env.ID())
	assert.Equal(t, domain.EventInvoicePaid, env.Type())
	assert.True(t, env.Livemode())
	assert.Equal(t, domain.ModeLive, env.Mode())
	assert.Equal(t, jan1, env.Created())
	assert.Equal(t, "2025-03-31.basil", env.APIVersion())
	assert.Equal(t, "open", env.PreviousAttributes()["status"])
	assert.Equal(t, domain.EventRef{ID: "evt_1", Type: "invoice.paid", Mode: domain.ModeLive}, env.Ref())
	assert.JSONEq(t, `{"id": "in_1", "object": "invoice"}`, string(env.Object()))
}

func TestEnvelope_ObjectIsCopied(t *testing.T) {
	env := NewEnvelope("evt_1", domain.EventRefundCreated, false, []byte(`{"id":"re_1"}`))

	obj := env.Object()
	obj[0] = 'X'

	assert.Equal(t, `{"id":"re_1"}`, string(env.Object()))
	assert.Nil(t, env.PreviousAttributes())
}

func TestParseEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"missing id", `{"type":"invoice.paid","data":{"object":{}}}`},
		{"missing type", `{"id":"evt_1","data":{"object":{}}}`},
		{"missing data", `{"id":"evt_1","type":"invoice.paid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.payload))
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func TestInvoiceView_ParentLayout(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventInvoicePaid, map[string]any{
		"id":             "in_1",
		"object":         "invoice",
		"billing_reason": "subscription_cycle",
		"amount_paid":    2000,
		"currency":       "usd",
		"parent": map[string]any{
			"subscription_details": map[string]any{
				"subscription": "sub_1",
				"metadata":     map[string]any{"subscription_id": "42"},
			},
		},
		"payments": map[string]any{
			"data": []any{
				map[string]any{"payment": map[string]any{"payment_intent": "pi_1", "charge": "ch_1"}},
			},
		},
	})

	v, err := env.Invoice()
	require.NoError(t, err)

	assert.Equal(t, "sub_1", v.Subscription)
	assert.Equal(t, "pi_1", v.PaymentIntent)
	assert.Equal(t, "ch_1", v.Charge)
	assert.Equal(t, "20", v.AmountPaid.String())
	assert.Equal(t, "42", v.SubscriptionMetadata["subscription_id"])
	assert.False(t, v.IsFirst())
	assert.Equal(t, "pi_1", v.PaymentKey())
}

func TestInvoiceView_LegacyLayout(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventInvoicePaid, map[string]any{
		"id":             "in_1",
		"billing_reason": "subscription_create",
		"subscription":   map[string]any{"id": "sub_1", "object": "subscription"},
		"payment_intent": "pi_1",
	})

	v, err := env.Invoice()
	require.NoError(t, err)

	assert.Equal(t, "sub_1", v.Subscription)
	assert.Equal(t, "pi_1", v.PaymentIntent)
	assert.True(t, v.IsFirst())
}

func TestInvoiceView_PaymentKey(t *testing.T) {
	free := InvoiceView{ID: "in_1"}
	assert.Equal(t, "in_1", free.PaymentKey())

	charged := InvoiceView{ID: "in_2", AmountDue: amount(500, "usd")}
	assert.Empty(t, charged.PaymentKey())
}

func TestInvoiceView_WrongObject(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventInvoicePaid, map[string]any{"id": "ch_1", "object": "charge"})

	_, err := env.Invoice()
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestSubscriptionView(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventSubscriptionUpdated, map[string]any{
		"id":                   "sub_1",
		"object":               "subscription",
		"status":               "active",
		"cancel_at_period_end": true,
		"items": map[string]any{
			"data": []any{map[string]any{"current_period_end": feb1.Unix()}},
		},
		"pause_collection":       map[string]any{"behavior": "void", "resumes_at": mar1.Unix()},
		"default_payment_method": map[string]any{"id": "pm_2", "object": "payment_method"},
	})

	v, err := env.Subscription()
	require.NoError(t, err)

	require.NotNil(t, v.CurrentPeriodEnd)
	assert.Equal(t, feb1, *v.CurrentPeriodEnd)
	assert.True(t, v.CancelScheduled())
	assert.Equal(t, feb1, *v.CancelDate())
	require.NotNil(t, v.PauseCollection)
	assert.Equal(t, mar1, *v.PauseCollection.ResumesAt)
	assert.Equal(t, "pm_2", v.DefaultPaymentMethod)
}

func TestChargeView_RefundsInheritPayment(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventChargeRefunded, map[string]any{
		"id":              "ch_1",
		"object":          "charge",
		"payment_intent":  "pi_1",
		"amount":          2500,
		"amount_refunded": 1000,
		"refunds": map[string]any{
			"data": []any{map[string]any{"id": "re_1", "amount": 1000, "status": "succeeded"}},
		},
	})

	v, err := env.Charge()
	require.NoError(t, err)

	require.Len(t, v.Refunds, 1)
	assert.Equal(t, "ch_1", v.Refunds[0].Charge)
	assert.Equal(t, "pi_1", v.Refunds[0].PaymentIntent)
	assert.Equal(t, "10", v.Refunds[0].Amount.String())
	assert.Equal(t, "10", v.AmountRefunded.String())
}

func TestViews_CurrencyMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		want     string
	}{
		{"two decimals", "usd", "10"},
		{"zero decimals", "jpy", "1000"},
		{"zero decimals upper case", "KRW", "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refund, err := envelope(t, "evt_1", domain.EventRefundCreated, map[string]any{
				"id": "re_1", "object": "refund", "payment_intent": "pi_1", "amount": 1000, "currency": tt.currency,
			}).Refund()
			require.NoError(t, err)
			assert.Equal(t, tt.want, refund.Amount.String())

			charge, err := envelope(t, "evt_2", domain.EventChargeRefunded, map[string]any{
				"id": "ch_1", "object": "charge", "payment_intent": "pi_1", "amount": 1000, "currency": tt.currency,
				"refunds": map[string]any{"data": []any{map[string]any{"id": "re_1", "amount": 1000}}},
			}).Charge()
			require.NoError(t, err)
			assert.Equal(t, tt.want, charge.Amount.String())
			require.Len(t, charge.Refunds, 1)
			assert.Equal(t, tt.want, charge.Refunds[0].Amount.String())
			assert.Equal(t, tt.currency, charge.Refunds[0].Currency)

			inv, err := envelope(t, "evt_3", domain.EventInvoicePaid, map[string]any{
				"id": "in_1", "object": "invoice", "amount_paid": 1000, "currency": tt.currency,
			}).Invoice()
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.AmountPaid.String())

			pi, err := envelope(t, "evt_4", domain.EventPaymentIntentSucceeded, map[string]any{
				"id": "pi_1", "object": "payment_intent", "amount": 1000, "currency": tt.currency,
			}).PaymentIntent()
			require.NoError(t, err)
			assert.Equal(t, tt.want, pi.Amount.String())
		})
	}
}

func TestScheduleView(t *testing.T) {
	env := envelope(t, "evt_1", domain.EventScheduleUpdated, map[string]any{
		"id":            "sub_sched_1",
		"object":        "subscription_schedule",
		"status":        "active",
		"end_behavior":  "cancel",
		"subscription":  "sub_1",
		"current_phase": map[string]any{"end_date": mar1.Unix()},
	})

	v, err := env.Schedule()
	require.NoError(t, err)

	assert.True(t, v.CancelScheduled())
	assert.Equal(t, "sub_1", v.Subscription)
	assert.Equal(t, mar1, *v.CurrentPhaseEnd)
	assert.Nil(t, v.CanceledAt)
}

func TestUnixPtr(t *testing.T) {
	zero := int64(0)
	sec := jan15.Unix()

	assert.Nil(t, unixPtr(nil))
	assert.Nil(t, unixPtr(&zero))
	assert.Equal(t, jan15, *unixPtr(&sec))
	assert.Equal(t, time.UTC, unixPtr(&sec).Location())
}
