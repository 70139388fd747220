package finance

import (
	"context"
	"testing"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/secrets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type builtGateway struct {
	provider integration.Provider
	creds    integration.Credentials
}

// fakeBuilder returns a MockPaymentGateway and records what it was built from
type fakeBuilder struct {
	built []builtGateway
}

func (b *fakeBuilder) New(provider integration.Provider, _ integration.Config, creds integration.Credentials) (finance.PaymentGateway, error) {
	b.built = append(b.built, builtGateway{provider: provider, creds: creds})
	gw := new(MockPaymentGateway)
	gw.On("GatewayType").Return(provider.GatewayType()).Maybe()
	return gw, nil
}

func testCipher() *secrets.SecretboxCipher {
	var key [32]byte
	copy(key[:], "resolver-test-key-0123456789abcd")
	return secrets.NewSecretboxCipher(key)
}

func enabledSettings(t *testing.T, orgID uuid.UUID, provider integration.Provider, cfg integration.Config, creds integration.Credentials) *integration.Settings {
	t.Helper()
	s, err := integration.NewSettings(orgID, provider)
	require.NoError(t, err)
	require.NoError(t, s.Update(true, cfg, creds, testCipher(), uuid.New()))
	return s
}

func TestGatewayResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	stripeSettings := enabledSettings(t, orgID, integration.ProviderStripe,
		integration.Config{IsDefaultGateway: true},
		integration.Credentials{SecretKey: "sk_test_123", WebhookSecret: "whsec_abc"})

	t.Run("empty name resolves the default gateway", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindDefaultGateway", mock.Anything, orgID).Return(stripeSettings, nil)
		builder := &fakeBuilder{}

		gw, err := NewGatewayResolver(repo, testCipher(), builder).Resolve(ctx, orgID, "")
		require.NoError(t, err)
		assert.Equal(t, finance.GatewayTypeStripe, gw.GatewayType())
		require.Len(t, builder.built, 1)
		assert.Equal(t, "sk_test_123", builder.built[0].creds.SecretKey)
	})

	t.Run("no default gateway", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindDefaultGateway", mock.Anything, orgID).Return(nil, shared.ErrNotFound)

		_, err := NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).Resolve(ctx, orgID, "")
		assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
	})

	t.Run("named gateway not configured", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByProvider", mock.Anything, orgID, integration.ProviderAuthorizeNet).Return(nil, shared.ErrNotFound)

		_, err := NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).Resolve(ctx, orgID, finance.GatewayTypeAuthorizeNet)
		assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
	})

	t.Run("disabled gateway", func(t *testing.T) {
		disabled, err := integration.NewSettings(orgID, integration.ProviderStripe)
		require.NoError(t, err)
		repo := new(MockSettingsRepository)
		repo.On("FindByProvider", mock.Anything, orgID, integration.ProviderStripe).Return(disabled, nil)

		_, err = NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).ForGateway(ctx, orgID, finance.GatewayTypeStripe)
		assert.ErrorIs(t, err, finance.ErrGatewayNotEnabled)
	})

	t.Run("manual payments have no gateway", func(t *testing.T) {
		_, err := NewGatewayResolver(new(MockSettingsRepository), testCipher(), &fakeBuilder{}).ForGateway(ctx, orgID, finance.GatewayTypeNone)
		assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
	})
}

func TestGatewayResolver_WebhookSecret(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("stripe uses the webhook secret", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByProvider", mock.Anything, orgID, integration.ProviderStripe).Return(
			enabledSettings(t, orgID, integration.ProviderStripe, integration.Config{},
				integration.Credentials{SecretKey: "sk_test_123", WebhookSecret: "whsec_abc"}), nil)

		secret, err := NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).WebhookSecret(ctx, orgID, integration.ProviderStripe)
		require.NoError(t, err)
		assert.Equal(t, "whsec_abc", secret)
	})

	t.Run("authorize.net uses the signature key", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByProvider", mock.Anything, orgID, integration.ProviderAuthorizeNet).Return(
			enabledSettings(t, orgID, integration.ProviderAuthorizeNet, integration.Config{Sandbox: true},
				integration.Credentials{APILoginID: "login", TransactionKey: "txkey", SignatureKey: "ABCDEF"}), nil)

		secret, err := NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).WebhookSecret(ctx, orgID, integration.ProviderAuthorizeNet)
		require.NoError(t, err)
		assert.Equal(t, "ABCDEF", secret)
	})

	t.Run("missing secret", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByProvider", mock.Anything, orgID, integration.ProviderStripe).Return(
			enabledSettings(t, orgID, integration.ProviderStripe, integration.Config{},
				integration.Credentials{SecretKey: "sk_test_123"}), nil)

		_, err := NewGatewayResolver(repo, testCipher(), &fakeBuilder{}).WebhookSecret(ctx, orgID, integration.ProviderStripe)
		assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
	})
}
