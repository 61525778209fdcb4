package billing

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// DefaultGatewayID is recorded as the payment method of orders paid
// through Stripe when StripeConfig.GatewayID is empty.
const DefaultGatewayID = "stripe"

// StripeConfig configures StripeGateway.
type StripeConfig struct {
	APIKey        string `validate:"required"` // sk_ or rk_, test or live
	WebhookSecret string `validate:"required"` // whsec_
	GatewayID     string
}

var configValidator = validator.New()

// Validate reports a missing key or webhook secret.
func (c *StripeConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("stripe: %w", err)
	}
	return nil
}

// IsTestMode reports whether the key is a test-mode key.
func (c *StripeConfig) IsTestMode() bool {
	_, rest, ok := strings.Cut(c.APIKey, "_")
	return ok && strings.HasPrefix(rest, "test_")
}

// Mode is the payment mode the key operates in.
func (c *StripeConfig) Mode() domain.PaymentMode {
	if c.IsTestMode() {
		return domain.ModeTest
	}
	return domain.ModeLive
}

// Gateway returns GatewayID or DefaultGatewayID.
func (c *StripeConfig) Gateway() string {
	if c.GatewayID == "" {
		return DefaultGatewayID
	}
	return c.GatewayID
}
