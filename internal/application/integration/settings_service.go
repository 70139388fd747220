// Package integration manages provider settings and the Acumatica sync runs.
package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GatewayBuilder builds a gateway adapter from decrypted settings
type GatewayBuilder interface {
	New(provider integration.Provider, cfg integration.Config, creds integration.Credentials) (finance.PaymentGateway, error)
}

// ERPClientFactory builds an ERP client from decrypted settings
type ERPClientFactory interface {
	New(cfg integration.Config, creds integration.Credentials) (integration.ERPClient, error)
}

// AuditRecorder writes audit entries for actions with no aggregate event
type AuditRecorder interface {
	RecordAction(ctx context.Context, actor authz.Actor, action, entityType string, entityID *uuid.UUID, metadata map[string]any)
}

const connectionTestTimeout = 20 * time.Second

// SettingsService reads, updates and tests provider settings
type SettingsService struct {
	settingsRepo integration.SettingsRepository
	cipher       integration.CredentialCipher
	gateways     GatewayBuilder
	erp          ERPClientFactory
	audit        AuditRecorder
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	settingsRepo integration.SettingsRepository,
	cipher integration.CredentialCipher,
	gateways GatewayBuilder,
	erp ERPClientFactory,
	audit AuditRecorder,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		cipher:       cipher,
		gateways:     gateways,
		erp:          erp,
		audit:        audit,
		publisher:    publisher,
		logger:       logger,
	}
}

// List returns the settings of every provider, configured or not, with
// secrets masked
func (s *SettingsService) List(ctx context.Context, actor authz.Actor) ([]SettingsResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	stored, err := s.settingsRepo.FindAllForOrg(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	byProvider := make(map[integration.Provider]*integration.Settings, len(stored))
	for i := range stored {
		byProvider[stored[i].Provider] = &stored[i]
	}

	out := make([]SettingsResponse, 0, len(integration.AllProviders))
	for _, p := range integration.AllProviders {
		settings, ok := byProvider[p]
		if !ok {
			out = append(out, unconfiguredResponse(p))
			continue
		}
		out = append(out, s.toResponse(ctx, settings))
	}
	return out, nil
}

// Update replaces a provider's settings. Only ADMIN may change settings.
// Marking a gateway as default clears the flag on the other gateway.
func (s *SettingsService) Update(ctx context.Context, actor authz.Actor, provider integration.Provider, req UpdateSettingsRequest) (*SettingsResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	settings, err := s.findOrNew(ctx, actor.OrganizationID, provider)
	if err != nil {
		return nil, err
	}

	if err := settings.Update(req.Enabled, req.Config.toDomain(), req.Credentials.toDomain(), s.cipher, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.settingsRepo.SaveWithLock(ctx, settings); err != nil {
		return nil, err
	}
	if settings.Config.IsDefaultGateway {
		s.clearOtherDefaults(ctx, settings)
	}
	if err := shared.PublishAndClear(ctx, s.publisher, settings); err != nil {
		s.logger.Warn("Failed to publish settings events", zap.Error(err))
	}

	logger.Enrich(ctx, s.logger).Info("integration settings updated",
		zap.String("provider", string(provider)),
		zap.Bool("enabled", settings.Enabled))
	resp := s.toResponse(ctx, settings)
	return &resp, nil
}

// TestConnection checks the stored credentials against the provider. A
// failing test is reported in the response, not as an error.
func (s *SettingsService) TestConnection(ctx context.Context, actor authz.Actor, provider integration.Provider) (*TestConnectionResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", fmt.Sprintf("Unknown integration provider %q", provider))
	}
	settings, err := s.settingsRepo.FindByProvider(ctx, actor.OrganizationID, provider)
	if err != nil {
		return nil, err
	}
	creds, err := settings.Credentials(s.cipher)
	if err != nil {
		return nil, err
	}

	testCtx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	testErr := s.test(testCtx, settings, creds)
	cancel()

	settings.RecordTest(testErr)
	if err := s.settingsRepo.SaveWithLock(ctx, settings); err != nil {
		return nil, err
	}

	resp := &TestConnectionResponse{Provider: string(provider), Success: testErr == nil, TestedAt: *settings.LastTestedAt}
	metadata := map[string]any{"provider": string(provider), "success": resp.Success}
	if testErr != nil {
		resp.Message = testErr.Error()
		metadata["error"] = resp.Message
		logger.Enrich(ctx, s.logger).Warn("connection test failed",
			zap.String("provider", string(provider)),
			zap.Error(testErr))
	}
	if s.audit != nil {
		s.audit.RecordAction(ctx, actor, audit.ActionSettingsTested, integration.AggregateTypeSettings, &settings.ID, metadata)
	}
	return resp, nil
}

func (s *SettingsService) test(ctx context.Context, settings *integration.Settings, creds integration.Credentials) error {
	if settings.Provider.IsGateway() {
		gw, err := s.gateways.New(settings.Provider, settings.Config, creds)
		if err != nil {
			return err
		}
		return gw.TestConnection(ctx)
	}

	client, err := s.erp.New(settings.Config, creds)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return err
	}
	return client.Logout(ctx)
}

func (s *SettingsService) findOrNew(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (*integration.Settings, error) {
	settings, err := s.settingsRepo.FindByProvider(ctx, orgID, provider)
	if err == nil {
		return settings, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	return integration.NewSettings(orgID, provider)
}

func (s *SettingsService) clearOtherDefaults(ctx context.Context, current *integration.Settings) {
	for _, p := range integration.AllProviders {
		if p == current.Provider || !p.IsGateway() {
			continue
		}
		other, err := s.settingsRepo.FindByProvider(ctx, current.OrganizationID, p)
		if err != nil || !other.Config.IsDefaultGateway {
			continue
		}
		other.Config.IsDefaultGateway = false
		other.IncrementVersion()
		if err := s.settingsRepo.SaveWithLock(ctx, other); err != nil {
			logger.Enrich(ctx, s.logger).Warn("failed to clear default gateway flag",
				zap.String("provider", string(p)),
				zap.Error(err))
		}
	}
}

func (s *SettingsService) toResponse(ctx context.Context, settings *integration.Settings) SettingsResponse {
	creds, err := settings.Credentials(s.cipher)
	if err != nil {
		logger.Enrich(ctx, s.logger).Error("stored credentials cannot be decrypted",
			zap.String("provider", string(settings.Provider)),
			zap.Error(err))
		creds = integration.Credentials{}
	}
	return ToSettingsResponse(settings, creds)
}
