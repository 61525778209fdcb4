//go:build integration
// +build integration

package billing

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTestConfig loads Stripe test credentials from .env.test
func loadTestConfig(t *testing.T) StripeConfig {
	t.Helper()

	// Load .env.test from project root
	err := godotenv.Load("../../.env.test")
	if err != nil {
		t.Skipf("Skipping integration test: .env.test not found (%v)", err)
	}

	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: STRIPE_SECRET_KEY not set")
	}

	config := StripeConfig{
		APIKey:        apiKey,
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
	if config.WebhookSecret == "" {
		config.WebhookSecret = "whsec_integration"
	}
	if !config.IsTestMode() {
		t.Fatal("refusing to run integration tests with live credentials")
	}
	return config
}

func TestStripeGateway_Integration_MissingObjects(t *testing.T) {
	g, err := NewStripeGateway(loadTestConfig(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("cancel unknown subscription is not found", func(t *testing.T) {
		_, err := g.CancelSubscription(ctx, "sub_does_not_exist")
		require.Error(t, err)
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("cancel unknown schedule is not found", func(t *testing.T) {
		_, err := g.CancelScheduleAtPeriodEnd(ctx, "sub_sched_does_not_exist")
		require.Error(t, err)
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("preview for unknown subscription is not found", func(t *testing.T) {
		_, err := g.GetUpcomingInvoice(ctx, "sub_does_not_exist")
		require.Error(t, err)
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("refund of unknown charge is not found", func(t *testing.T) {
		_, err := g.CreateRefund(ctx, CreateRefundParams{ChargeID: "ch_does_not_exist", Amount: decimal.NewFromInt(1)})
		require.Error(t, err)
		assert.True(t, IsNotFound(err), "got %v", err)
	})
}

func TestStripeGateway_Integration_ExpiredKey(t *testing.T) {
	config := loadTestConfig(t)
	config.APIKey = "sk_test_expired_or_revoked_key_000000000000"

	g, err := NewStripeGateway(config, nil)
	require.NoError(t, err)

	_, err = g.CancelSubscription(context.Background(), "sub_any")
	require.Error(t, err)
	assert.True(t, IsCredentialsExpired(err), "got %v", err)
}
