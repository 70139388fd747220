package persistence

import (
	"context"
	"strings"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationRepository implements identity.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds an organization by its slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(slug)).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindActive returns every active organization
func (r *GormOrganizationRepository) FindActive(ctx context.Context) ([]identity.Organization, error) {
	var rows []models.OrganizationModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", identity.OrganizationStatusActive).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	orgs := make([]identity.Organization, len(rows))
	for i := range rows {
		orgs[i] = *rows[i].ToDomain()
	}
	return orgs, nil
}

// Save creates or updates an organization with a version check
func (r *GormOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	return saveVersioned(ctx, r.db, models.OrganizationModelFromDomain(org), org, "organization")
}

var _ identity.OrganizationRepository = (*GormOrganizationRepository)(nil)
