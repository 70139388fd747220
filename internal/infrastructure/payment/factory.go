package payment

import (
	"fmt"
	"net/http"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
)

// GatewayFactory builds a gateway adapter from an organization's decrypted
// integration settings
type GatewayFactory struct {
	logger *zap.Logger

	// Overrides for tests
	StripeBackends       *stripe.Backends
	AuthorizeNetEndpoint string
	HTTPClient           *http.Client
}

// NewGatewayFactory creates a new GatewayFactory
func NewGatewayFactory(logger *zap.Logger) *GatewayFactory {
	return &GatewayFactory{logger: logger}
}

// New returns the adapter for provider
func (f *GatewayFactory) New(provider integration.Provider, cfg integration.Config, creds integration.Credentials) (finance.PaymentGateway, error) {
	switch provider {
	case integration.ProviderStripe:
		return NewStripeAdapter(&StripeConfig{
			SecretKey:     creds.SecretKey,
			WebhookSecret: creds.WebhookSecret,
			Backends:      f.StripeBackends,
		}, f.logger.Named("stripe"))
	case integration.ProviderAuthorizeNet:
		return NewAuthorizeNetAdapter(&AuthorizeNetConfig{
			APILoginID:     creds.APILoginID,
			TransactionKey: creds.TransactionKey,
			Sandbox:        cfg.Sandbox,
			Endpoint:       f.AuthorizeNetEndpoint,
			HTTPClient:     f.HTTPClient,
		}, f.logger.Named("authorizenet"))
	}
	return nil, fmt.Errorf("%w: %s is not a payment gateway", finance.ErrGatewayNotConfigured, provider)
}
