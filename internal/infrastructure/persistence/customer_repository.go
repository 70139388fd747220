package persistence

import (
	"context"
	"strings"

	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements customer.Repository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByIDForOrg finds a customer by ID within an organization
func (r *GormCustomerRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*customer.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a customer by its customer number
func (r *GormCustomerRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*customer.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("customer_number = ?", strings.ToUpper(strings.TrimSpace(number))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByERPReferences returns customers keyed by ERP reference
func (r *GormCustomerRepository) FindByERPReferences(ctx context.Context, orgID uuid.UUID, refs []string) (map[string]*customer.Customer, error) {
	result := make(map[string]*customer.Customer, len(refs))
	if len(refs) == 0 {
		return result, nil
	}

	var rows []models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("erp_reference IN ?", refs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		c := rows[i].ToDomain()
		result[c.ERPReference] = c
	}
	return result, nil
}

// FindAllForOrg lists customers matching the filter
func (r *GormCustomerRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter customer.Filter) ([]customer.Customer, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Scopes(forOrg(orgID), search(filter.Search, "customer_number", "company_name", "contact_name", "email"))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CustomerModel
	if err := query.Scopes(paginate(filter.Filter, CustomerSortFields, "company_name")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	customers := make([]customer.Customer, len(rows))
	for i := range rows {
		customers[i] = *rows[i].ToDomain()
	}
	return customers, total, nil
}

// ExistsByNumber checks whether a customer number is taken
func (r *GormCustomerRepository) ExistsByNumber(ctx context.Context, orgID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Scopes(forOrg(orgID)).
		Where("customer_number = ?", strings.ToUpper(strings.TrimSpace(number))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or overwrites a customer without a version check
func (r *GormCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	return upsert(ctx, r.db, models.CustomerModelFromDomain(c), c)
}

// SaveWithLock saves a customer with optimistic locking
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, c *customer.Customer) error {
	return saveVersioned(ctx, r.db, models.CustomerModelFromDomain(c), c, "customer")
}

// DeleteForOrg deletes a customer within an organization
func (r *GormCustomerRepository) DeleteForOrg(ctx context.Context, orgID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Delete(&models.CustomerModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ customer.Repository = (*GormCustomerRepository)(nil)
