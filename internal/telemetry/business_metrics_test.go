package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("test", reg)

	m.WebhookReceived.WithLabelValues("invoice.paid", "test").Inc()
	m.RecordCommand("cancel", nil)
	m.RecordCommand("cancel", errors.New("remote"))
	m.ObserveStripeCall("subscription.cancel", 120*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookReceived.WithLabelValues("invoice.paid", "test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("cancel", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("cancel", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_business_stripe_api_duration_seconds")

	// A second registry gets its own collectors.
	assert.NotPanics(t, func() { NewBusinessMetrics("test", prometheus.NewRegistry()) })
}

func TestSentryHelpers_DisabledAreNoops(t *testing.T) {
	cleanup, err := InitSentry(SentryConfig{Enabled: false}, discardLogger())
	require.NoError(t, err)
	cleanup()

	assert.False(t, IsEnabled())
	assert.NotPanics(t, func() {
		CaptureError(errors.New("boom"), nil)
	})
}
