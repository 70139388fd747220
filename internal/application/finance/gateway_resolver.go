package finance

import (
	"context"
	"fmt"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// GatewayBuilder builds a gateway adapter from decrypted settings
type GatewayBuilder interface {
	New(provider integration.Provider, cfg integration.Config, creds integration.Credentials) (finance.PaymentGateway, error)
}

// GatewayProvider resolves the gateway adapters of an organization
type GatewayProvider interface {
	// Resolve returns the named gateway, or the default one when name is empty
	Resolve(ctx context.Context, orgID uuid.UUID, name finance.GatewayType) (finance.PaymentGateway, error)
	// ForGateway returns the adapter of the gateway that captured a payment
	ForGateway(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType) (finance.PaymentGateway, error)
	// WebhookSecret returns the signing secret of provider's webhooks
	WebhookSecret(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (string, error)
}

// GatewayResolver picks and builds the payment gateway of an organization
type GatewayResolver struct {
	settingsRepo integration.SettingsRepository
	cipher       integration.CredentialCipher
	builder      GatewayBuilder
}

// NewGatewayResolver creates a new GatewayResolver
func NewGatewayResolver(settingsRepo integration.SettingsRepository, cipher integration.CredentialCipher, builder GatewayBuilder) *GatewayResolver {
	return &GatewayResolver{settingsRepo: settingsRepo, cipher: cipher, builder: builder}
}

// Resolve returns the named gateway, or the default gateway when name is empty
func (r *GatewayResolver) Resolve(ctx context.Context, orgID uuid.UUID, name finance.GatewayType) (finance.PaymentGateway, error) {
	var (
		settings *integration.Settings
		err      error
	)
	if name == "" {
		settings, err = r.settingsRepo.FindDefaultGateway(ctx, orgID)
		if shared.IsNotFound(err) {
			return nil, fmt.Errorf("%w: no default gateway", finance.ErrGatewayNotConfigured)
		}
		if err != nil {
			return nil, err
		}
		return r.build(settings)
	}
	return r.ForGateway(ctx, orgID, name)
}

// ForGateway returns the adapter of a specific gateway, for example the one
// that captured an existing payment
func (r *GatewayResolver) ForGateway(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType) (finance.PaymentGateway, error) {
	provider, ok := integration.ProviderForGateway(gateway)
	if !ok {
		return nil, fmt.Errorf("%w: %s", finance.ErrGatewayNotConfigured, gateway)
	}
	settings, err := r.enabledSettings(ctx, orgID, provider)
	if err != nil {
		return nil, err
	}
	return r.build(settings)
}

// WebhookSecret returns the signing secret of provider's webhooks
func (r *GatewayResolver) WebhookSecret(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (string, error) {
	settings, err := r.enabledSettings(ctx, orgID, provider)
	if err != nil {
		return "", err
	}
	creds, err := settings.Credentials(r.cipher)
	if err != nil {
		return "", err
	}
	secret := creds.WebhookSecret
	if provider == integration.ProviderAuthorizeNet {
		secret = creds.SignatureKey
	}
	if secret == "" {
		return "", fmt.Errorf("%w: %s webhook secret", finance.ErrGatewayNotConfigured, provider)
	}
	return secret, nil
}

func (r *GatewayResolver) enabledSettings(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (*integration.Settings, error) {
	settings, err := r.settingsRepo.FindByProvider(ctx, orgID, provider)
	if shared.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", finance.ErrGatewayNotConfigured, provider)
	}
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, fmt.Errorf("%w: %s", finance.ErrGatewayNotEnabled, provider)
	}
	return settings, nil
}

func (r *GatewayResolver) build(settings *integration.Settings) (finance.PaymentGateway, error) {
	creds, err := settings.Credentials(r.cipher)
	if err != nil {
		return nil, err
	}
	return r.builder.New(settings.Provider, settings.Config, creds)
}

var _ GatewayProvider = (*GatewayResolver)(nil)
