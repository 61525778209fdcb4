package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

func deauthorized(t *testing.T) *Envelope {
	t.Helper()
	return envelope(t, "evt_deauth", domain.EventAccountDeauthorized, map[string]any{
		"id": "ca_1", "object": "application", "name": "Shop",
	})
}

func TestAccountProcessor_CancelsOpenSubscriptions(t *testing.T) {
	f := newFixture(t, feb1)

	f.store.putSub(activeSubscription(1, "sub_1"))
	f.gateway.Put("sub_1", "active")

	// Never linked on the gateway.
	f.store.putSub(activeSubscription(2, ""))

	live := activeSubscription(3, "sub_3")
	live.Mode = domain.ModeLive
	f.store.putSub(live)

	done := activeSubscription(4, "sub_4")
	done.Status = domain.StatusExpired
	f.store.putSub(done)

	resp, err := f.dispatch(t, deauthorized(t))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSucceeded, resp.Status)

	assert.Equal(t, domain.StatusCanceled, f.store.sub(1).Status)
	assert.Equal(t, domain.StatusCanceled, f.store.sub(2).Status)
	assert.Equal(t, domain.StatusActive, f.store.sub(3).Status)
	assert.Equal(t, domain.StatusExpired, f.store.sub(4).Status)
	assert.Equal(t, 1, f.gateway.Calls("CancelSubscription(sub_1)"))
	assert.Equal(t, 0, f.gateway.Calls("CancelSubscription(sub_3)"))

	for _, c := range f.notes.changes {
		assert.Equal(t, domain.ActorWebhook, c.CausedBy)
	}
}

func TestAccountProcessor_FallsBackToLocalCancel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"credentials expired", &billing.Error{Kind: billing.KindCredentialsExpired, Op: "subscription.cancel", Message: "expired"}},
		{"remote missing", &billing.Error{Kind: billing.KindNotFound, Op: "subscription.cancel", Message: "missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, feb1)
			f.store.putSub(activeSubscription(1, "sub_1"))
			f.gateway.CancelSubscriptionFunc = func(context.Context, string) (*billing.RemoteSubscription, error) {
				return nil, tt.err
			}

			resp, err := f.dispatch(t, deauthorized(t))
			require.NoError(t, err)
			assert.Equal(t, domain.RequestSucceeded, resp.Status)
			assert.Equal(t, domain.StatusCanceled, f.store.sub(1).Status)
			assert.Equal(t, 1, f.gateway.Calls("CancelSubscription"))
		})
	}
}

func TestAccountProcessor_ReportsOtherFailures(t *testing.T) {
	f := newFixture(t, feb1)
	f.store.putSub(activeSubscription(1, "sub_1"))
	f.gateway.CancelSubscriptionFunc = func(context.Context, string) (*billing.RemoteSubscription, error) {
		return nil, &billing.Error{Kind: billing.KindRateLimited, Op: "subscription.cancel", Message: "slow down"}
	}

	resp, err := f.dispatch(t, deauthorized(t))
	require.Error(t, err)
	assert.Equal(t, domain.RequestError, resp.Status)
	assert.Equal(t, domain.StatusActive, f.store.sub(1).Status)
}
