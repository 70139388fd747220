package identity

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// OrganizationService reads and edits the caller's organization
type OrganizationService struct {
	orgRepo identity.OrganizationRepository
	audit   AuditRecorder
	logger  *zap.Logger
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo identity.OrganizationRepository, audit AuditRecorder, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo, audit: audit, logger: logger}
}

// Get returns the caller's organization. Any signed-in user may read it.
func (s *OrganizationService) Get(ctx context.Context, actor authz.Actor) (*OrganizationResponse, error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return nil, err
	}
	org, err := s.orgRepo.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	resp := ToOrganizationResponse(org)
	return &resp, nil
}

// Update changes the organization profile. ADMIN only.
func (s *OrganizationService) Update(ctx context.Context, actor authz.Actor, req UpdateOrganizationRequest) (*OrganizationResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	org, err := s.orgRepo.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := org.Update(req.Name, req.ContactEmail, req.Currency, req.Timezone); err != nil {
		return nil, err
	}
	if err := s.orgRepo.Save(ctx, org); err != nil {
		return nil, err
	}
	s.audit.RecordAction(ctx, actor, audit.ActionOrgUpdated, "Organization", &org.ID, map[string]any{
		"name":     org.Name,
		"currency": org.Currency,
		"timezone": org.Timezone,
	})
	s.logger.Info("Organization updated", zap.String("organization_id", org.ID.String()))

	resp := ToOrganizationResponse(org)
	return &resp, nil
}
