package persistence

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettingsRepository implements integration.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// FindByProvider returns the settings of one provider
func (r *GormSettingsRepository) FindByProvider(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (*integration.Settings, error) {
	var model models.IntegrationSettingsModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("provider = ?", provider).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForOrg returns every configured provider of an organization
func (r *GormSettingsRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID) ([]integration.Settings, error) {
	var rows []models.IntegrationSettingsModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Order("provider ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return settingsToDomain(rows), nil
}

// FindEnabled returns enabled settings of provider across all organizations
func (r *GormSettingsRepository) FindEnabled(ctx context.Context, provider integration.Provider) ([]integration.Settings, error) {
	var rows []models.IntegrationSettingsModel
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND enabled = ?", provider, true).
		Order("organization_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return settingsToDomain(rows), nil
}

// FindDefaultGateway returns the enabled gateway flagged as default. With a
// single enabled gateway and no flag, that gateway is the default.
func (r *GormSettingsRepository) FindDefaultGateway(ctx context.Context, orgID uuid.UUID) (*integration.Settings, error) {
	var rows []models.IntegrationSettingsModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("enabled = ? AND provider IN ?", true,
			[]integration.Provider{integration.ProviderStripe, integration.ProviderAuthorizeNet}).
		Order("provider ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Config.IsDefaultGateway {
			return rows[i].ToDomain(), nil
		}
	}
	if len(rows) == 1 {
		return rows[0].ToDomain(), nil
	}
	return nil, shared.ErrNotFound
}

// Save creates or overwrites settings
func (r *GormSettingsRepository) Save(ctx context.Context, settings *integration.Settings) error {
	return upsert(ctx, r.db, models.IntegrationSettingsModelFromDomain(settings), settings)
}

// SaveWithLock saves settings with optimistic locking
func (r *GormSettingsRepository) SaveWithLock(ctx context.Context, settings *integration.Settings) error {
	return saveVersioned(ctx, r.db, models.IntegrationSettingsModelFromDomain(settings), settings, "integration settings")
}

func settingsToDomain(rows []models.IntegrationSettingsModel) []integration.Settings {
	out := make([]integration.Settings, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ integration.SettingsRepository = (*GormSettingsRepository)(nil)

// GormSyncLogRepository implements integration.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save inserts or overwrites a sync log. A run is saved when it starts and
// again when it finishes.
func (r *GormSyncLogRepository) Save(ctx context.Context, log *integration.SyncLog) error {
	return r.db.WithContext(ctx).Save(models.SyncLogModelFromDomain(log)).Error
}

// FindByIDForOrg finds a sync log by ID within an organization
func (r *GormSyncLogRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*integration.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForOrg lists sync logs matching the filter, newest first by default
func (r *GormSyncLogRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter integration.SyncLogFilter) ([]integration.SyncLog, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Scopes(forOrg(orgID))
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Entity != nil {
		query = query.Where("entity = ?", *filter.Entity)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.FromDate != nil {
		query = query.Where("started_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("started_at <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SyncLogModel
	if err := query.Scopes(paginate(filter.Filter, SyncLogSortFields, "started_at")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	logs := make([]integration.SyncLog, len(rows))
	for i := range rows {
		logs[i] = *rows[i].ToDomain()
	}
	return logs, total, nil
}

// FindLastSuccessful returns the latest SUCCESS or PARTIAL run
func (r *GormSyncLogRepository) FindLastSuccessful(ctx context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	return r.findLatest(ctx, orgID, provider, entity, []integration.SyncLogStatus{
		integration.SyncLogStatusSuccess, integration.SyncLogStatusPartial,
	})
}

// FindLatest returns the latest run regardless of outcome
func (r *GormSyncLogRepository) FindLatest(ctx context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	return r.findLatest(ctx, orgID, provider, entity, nil)
}

func (r *GormSyncLogRepository) findLatest(ctx context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity, statuses []integration.SyncLogStatus) (*integration.SyncLog, error) {
	query := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("provider = ? AND entity = ?", provider, entity)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var model models.SyncLogModel
	if err := query.Order("started_at DESC").First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// CountFailedSince counts FAILED runs started at or after since
func (r *GormSyncLogRepository) CountFailedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Scopes(forOrg(orgID)).
		Where("status = ? AND started_at >= ?", integration.SyncLogStatusFailed, since).
		Count(&count).Error
	return count, err
}

// FailStale marks RUNNING logs started before before as FAILED. A process
// that died mid-run leaves such rows behind.
func (r *GormSyncLogRepository) FailStale(ctx context.Context, before time.Time) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("status = ? AND started_at < ?", integration.SyncLogStatusRunning, before).
		Updates(map[string]any{
			"status":        integration.SyncLogStatusFailed,
			"error_message": "sync did not finish",
			"finished_at":   now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
