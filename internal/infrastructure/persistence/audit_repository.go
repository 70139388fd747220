package persistence

import (
	"context"

	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements audit.Repository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create appends an audit log
func (r *GormAuditLogRepository) Create(ctx context.Context, log *audit.Log) error {
	return r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(log)).Error
}

// FindAllForOrg lists audit logs matching the filter
func (r *GormAuditLogRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter audit.Filter) ([]audit.Log, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogModel{}).
		Scopes(forOrg(orgID))
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AuditLogModel
	if err := query.Scopes(paginate(filter.Filter, AuditLogSortFields, "created_at")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	logs := make([]audit.Log, len(rows))
	for i := range rows {
		logs[i] = *rows[i].ToDomain()
	}
	return logs, total, nil
}

var _ audit.Repository = (*GormAuditLogRepository)(nil)
