package payment

import (
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

var (
	ErrStripeMissingSecretKey = errors.New("stripe: secret key is required")
	ErrStripeInvalidSecretKey = errors.New("stripe: secret key must start with sk_ or rk_")
)

// StripeConfig holds one organization's Stripe credentials
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Backends overrides the HTTP backends, nil uses Stripe's defaults
	Backends *stripe.Backends
}

// Validate validates the configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return ErrStripeMissingSecretKey
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return ErrStripeInvalidSecretKey
	}
	return nil
}

// IsTestMode reports whether the key is a test-mode key
func (c *StripeConfig) IsTestMode() bool {
	return strings.Contains(c.SecretKey, "_test_")
}
