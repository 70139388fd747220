package persistence

import (
	"context"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var outstandingStatuses = []finance.DocumentStatus{finance.DocumentStatusOpen, finance.DocumentStatusPartial}

// GormDocumentRepository implements finance.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForOrg finds a document by ID within an organization
func (r *GormDocumentRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*finance.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDsForOrg finds several documents at once. Missing IDs are omitted.
func (r *GormDocumentRepository) FindByIDsForOrg(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*finance.Document, error) {
	if len(ids) == 0 {
		return []*finance.Document{}, nil
	}
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("id IN ?", ids).
		Order("due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]*finance.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].ToDomain()
	}
	return docs, nil
}

// FindByNumber finds a document by type and number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, docType finance.DocumentType, number string) (*finance.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("type = ? AND document_number = ?", docType, number).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByERPReferences returns documents of docType keyed by ERP reference
func (r *GormDocumentRepository) FindByERPReferences(ctx context.Context, orgID uuid.UUID, docType finance.DocumentType, refs []string) (map[string]*finance.Document, error) {
	result := make(map[string]*finance.Document, len(refs))
	if len(refs) == 0 {
		return result, nil
	}
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("type = ? AND erp_reference IN ?", docType, refs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		d := rows[i].ToDomain()
		result[d.ERPReference] = d
	}
	return result, nil
}

// FindAllForOrg lists documents matching the filter
func (r *GormDocumentRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter finance.DocumentFilter) ([]finance.Document, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Scopes(forOrg(orgID), search(filter.Search, "document_number", "description", "erp_reference"))
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.OverdueAsOf != nil {
		query = query.Where("due_date < ? AND status IN ?", *filter.OverdueAsOf, outstandingStatuses)
	}
	if filter.FromDate != nil {
		query = query.Where("document_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("document_date <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DocumentModel
	if err := query.Scopes(paginate(filter.Filter, DocumentSortFields, "due_date")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	docs := make([]finance.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, total, nil
}

// FindOutstanding returns OPEN and PARTIAL documents, oldest due date first
func (r *GormDocumentRepository) FindOutstanding(ctx context.Context, orgID uuid.UUID, customerID *uuid.UUID) ([]finance.Document, error) {
	query := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("status IN ?", outstandingStatuses)
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	var rows []models.DocumentModel
	if err := query.Order("due_date ASC, document_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]finance.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, nil
}

// CountByCustomer counts every document of a customer
func (r *GormDocumentRepository) CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Scopes(forOrg(orgID)).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}

// Save creates or overwrites a document without a version check
func (r *GormDocumentRepository) Save(ctx context.Context, doc *finance.Document) error {
	return upsert(ctx, r.db, models.DocumentModelFromDomain(doc), doc)
}

// SaveWithLock saves a document with optimistic locking
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *finance.Document) error {
	return saveVersioned(ctx, r.db, models.DocumentModelFromDomain(doc), doc, "document")
}

var _ finance.DocumentRepository = (*GormDocumentRepository)(nil)
