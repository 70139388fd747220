package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/secrets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCipher() *secrets.SecretboxCipher {
	var key [32]byte
	copy(key[:], "integration-test-key-0123456789a")
	return secrets.NewSecretboxCipher(key)
}

func adminActor(orgID uuid.UUID) authz.Actor {
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Role: identity.RoleAdmin, IP: "10.0.0.1"}
}

func managerActor(orgID uuid.UUID) authz.Actor {
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Role: identity.RoleManager}
}

func configured(t *testing.T, orgID uuid.UUID, provider integration.Provider, enabled bool, cfg integration.Config, creds integration.Credentials) *integration.Settings {
	t.Helper()
	s, err := integration.NewSettings(orgID, provider)
	require.NoError(t, err)
	require.NoError(t, s.Update(enabled, cfg, creds, testCipher(), uuid.Nil))
	s.ClearDomainEvents()
	return s
}

type settingsFixture struct {
	orgID     uuid.UUID
	repo      *memorySettings
	gateway   *MockPaymentGateway
	builder   *gatewayBuilder
	erp       *fakeERP
	audit     *MockAuditRecorder
	publisher *recordingPublisher
	svc       *SettingsService
}

func newSettingsFixture(items ...*integration.Settings) *settingsFixture {
	f := &settingsFixture{
		repo:      newMemorySettings(items...),
		gateway:   new(MockPaymentGateway),
		erp:       &fakeERP{},
		audit:     new(MockAuditRecorder),
		publisher: &recordingPublisher{},
	}
	f.builder = &gatewayBuilder{gateway: f.gateway}
	f.svc = NewSettingsService(f.repo, testCipher(), f.builder, f.erp, f.audit, f.publisher, zap.NewNop())
	return f
}

func TestSettingsService_List(t *testing.T) {
	orgID := uuid.New()
	stripe := configured(t, orgID, integration.ProviderStripe, true,
		integration.Config{IsDefaultGateway: true, PublishableKey: "pk_test_1"},
		integration.Credentials{SecretKey: "sk_test_abcdef1234", WebhookSecret: "whsec_zzzz9876"})
	f := newSettingsFixture(stripe)

	list, err := f.svc.List(context.Background(), managerActor(orgID))
	require.NoError(t, err)
	require.Len(t, list, len(integration.AllProviders))

	byProvider := make(map[string]SettingsResponse)
	for _, s := range list {
		byProvider[s.Provider] = s
	}
	got := byProvider["STRIPE"]
	assert.True(t, got.Configured)
	assert.True(t, got.Enabled)
	assert.Equal(t, "pk_test_1", got.Config.PublishableKey)
	assert.Equal(t, "****1234", got.Credentials["secret_key"])
	assert.Equal(t, "****9876", got.Credentials["webhook_secret"])

	assert.False(t, byProvider["ACUMATICA"].Configured)
	assert.Empty(t, byProvider["ACUMATICA"].Credentials)

	_, err = f.svc.List(context.Background(), authz.Actor{OrganizationID: orgID, Role: identity.RoleViewer, UserID: uuid.New()})
	assert.Equal(t, shared.ErrForbidden.Code, shared.ErrorCode(err))
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("creates settings and keeps secrets encrypted", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture()

		resp, err := f.svc.Update(ctx, adminActor(orgID), integration.ProviderAcumatica, UpdateSettingsRequest{
			Enabled: true,
			Config: ConfigRequest{
				BaseURL:          "https://erp.example.com/",
				Company:          "Acme",
				AutoSyncPayments: true,
			},
			Credentials: CredentialsRequest{Username: "api", Password: "s3cret-pass"},
		})
		require.NoError(t, err)
		assert.True(t, resp.Enabled)
		assert.Equal(t, "https://erp.example.com", resp.Config.BaseURL)
		assert.Equal(t, integration.DefaultAcumaticaAPIVersion, resp.Config.APIVersion)
		assert.Equal(t, "****pass", resp.Credentials["password"])

		stored, err := f.repo.FindByProvider(ctx, orgID, integration.ProviderAcumatica)
		require.NoError(t, err)
		assert.NotContains(t, stored.EncryptedCredentials, "s3cret-pass")
		assert.Equal(t, []string{integration.EventTypeSettingsUpdated}, f.publisher.types())
	})

	t.Run("empty secrets keep the stored ones", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture(configured(t, orgID, integration.ProviderStripe, true, integration.Config{},
			integration.Credentials{SecretKey: "sk_test_original"}))

		_, err := f.svc.Update(ctx, adminActor(orgID), integration.ProviderStripe, UpdateSettingsRequest{
			Enabled:     true,
			Credentials: CredentialsRequest{WebhookSecret: "whsec_new"},
		})
		require.NoError(t, err)

		stored, _ := f.repo.FindByProvider(ctx, orgID, integration.ProviderStripe)
		creds, err := stored.Credentials(testCipher())
		require.NoError(t, err)
		assert.Equal(t, "sk_test_original", creds.SecretKey)
		assert.Equal(t, "whsec_new", creds.WebhookSecret)
	})

	t.Run("enabling without credentials is refused", func(t *testing.T) {
		f := newSettingsFixture()
		_, err := f.svc.Update(ctx, adminActor(uuid.New()), integration.ProviderAuthorizeNet, UpdateSettingsRequest{Enabled: true})
		assert.Equal(t, "INCOMPLETE_SETTINGS", shared.ErrorCode(err))
	})

	t.Run("only admins", func(t *testing.T) {
		f := newSettingsFixture()
		_, err := f.svc.Update(ctx, managerActor(uuid.New()), integration.ProviderStripe, UpdateSettingsRequest{})
		assert.Equal(t, shared.ErrForbidden.Code, shared.ErrorCode(err))
	})

	t.Run("new default gateway clears the old one", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture(configured(t, orgID, integration.ProviderStripe, true,
			integration.Config{IsDefaultGateway: true}, integration.Credentials{SecretKey: "sk_test_1"}))

		_, err := f.svc.Update(ctx, adminActor(orgID), integration.ProviderAuthorizeNet, UpdateSettingsRequest{
			Enabled:     true,
			Config:      ConfigRequest{IsDefaultGateway: true, Sandbox: true},
			Credentials: CredentialsRequest{APILoginID: "login", TransactionKey: "key"},
		})
		require.NoError(t, err)

		stripe, _ := f.repo.FindByProvider(ctx, orgID, integration.ProviderStripe)
		assert.False(t, stripe.Config.IsDefaultGateway)
		def, err := f.repo.FindDefaultGateway(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, integration.ProviderAuthorizeNet, def.Provider)
	})
}

func TestSettingsService_TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway success", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture(configured(t, orgID, integration.ProviderStripe, true, integration.Config{},
			integration.Credentials{SecretKey: "sk_test_1"}))
		f.gateway.On("TestConnection", mock.Anything).Return(nil)
		f.audit.On("RecordAction", ctx, mock.Anything, audit.ActionSettingsTested, integration.AggregateTypeSettings, mock.Anything,
			mock.MatchedBy(func(m map[string]any) bool { return m["success"] == true })).Return()

		resp, err := f.svc.TestConnection(ctx, adminActor(orgID), integration.ProviderStripe)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "sk_test_1", f.builder.creds.SecretKey)

		stored, _ := f.repo.FindByProvider(ctx, orgID, integration.ProviderStripe)
		assert.Equal(t, integration.TestStatusSuccess, stored.LastTestStatus)
		f.audit.AssertExpectations(t)
	})

	t.Run("gateway failure is reported, not returned", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture(configured(t, orgID, integration.ProviderStripe, true, integration.Config{},
			integration.Credentials{SecretKey: "sk_test_1"}))
		f.gateway.On("TestConnection", mock.Anything).Return(errors.New("stripe: invalid api key"))
		f.audit.On("RecordAction", ctx, mock.Anything, audit.ActionSettingsTested, integration.AggregateTypeSettings, mock.Anything, mock.Anything).Return()

		resp, err := f.svc.TestConnection(ctx, adminActor(orgID), integration.ProviderStripe)
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "invalid api key")

		stored, _ := f.repo.FindByProvider(ctx, orgID, integration.ProviderStripe)
		assert.Equal(t, integration.TestStatusFailed, stored.LastTestStatus)
	})

	t.Run("acumatica logs in and out", func(t *testing.T) {
		orgID := uuid.New()
		f := newSettingsFixture(configured(t, orgID, integration.ProviderAcumatica, true,
			integration.Config{BaseURL: "https://erp.example.com"},
			integration.Credentials{Username: "api", Password: "pw"}))
		f.audit.On("RecordAction", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

		resp, err := f.svc.TestConnection(ctx, adminActor(orgID), integration.ProviderAcumatica)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 1, f.erp.logins)
		assert.Equal(t, 1, f.erp.logouts)
		assert.Equal(t, "api", f.erp.lastCreds.Username)
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		f := newSettingsFixture()
		_, err := f.svc.TestConnection(ctx, adminActor(uuid.New()), integration.ProviderStripe)
		assert.True(t, shared.IsNotFound(err))
	})
}
