package persistence

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM.
// A payment and its applications are written in one transaction.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func withApplications(db *gorm.DB) *gorm.DB {
	return db.Preload("Applications", func(db *gorm.DB) *gorm.DB {
		return db.Order("applied_at ASC")
	})
}

// FindByIDForOrg finds a payment by ID within an organization
func (r *GormPaymentRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID), withApplications).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByGatewayTransaction finds the payment captured as transactionID
func (r *GormPaymentRepository) FindByGatewayTransaction(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType, transactionID string) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID), withApplications).
		Where("gateway = ? AND gateway_transaction_id = ?", gateway, transactionID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForOrg lists payments matching the filter
func (r *GormPaymentRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter finance.PaymentFilter) ([]finance.Payment, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(forOrg(orgID), search(filter.Search, "payment_number", "reference_number", "gateway_transaction_id"))
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.SyncStatus != nil {
		query = query.Where("sync_status = ?", *filter.SyncStatus)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	if err := query.Scopes(withApplications, paginate(filter.Filter, PaymentSortFields, "payment_date")).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return paymentsToDomain(rows), total, nil
}

// FindRecentForCustomer returns a customer's latest payments
func (r *GormPaymentRepository) FindRecentForCustomer(ctx context.Context, orgID, customerID uuid.UUID, limit int) ([]finance.Payment, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID), withApplications).
		Where("customer_id = ?", customerID).
		Order("payment_date DESC, created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// FindBySyncStatus returns completed payments in status, oldest first
func (r *GormPaymentRepository) FindBySyncStatus(ctx context.Context, orgID uuid.UUID, status finance.SyncStatus, limit int) ([]finance.Payment, error) {
	query := r.db.WithContext(ctx).
		Scopes(forOrg(orgID), withApplications).
		Where("status = ? AND sync_status = ?", finance.PaymentStatusCompleted, status).
		Order("payment_date ASC, created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.PaymentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// FailStaleSyncs marks pushes left PENDING since before as FAILED. A process
// that stopped mid-push leaves such rows behind.
func (r *GormPaymentRepository) FailStaleSyncs(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("sync_status = ? AND updated_at < ?", finance.SyncStatusPending, before).
		Updates(map[string]any{
			"sync_status": finance.SyncStatusFailed,
			"sync_error":  "sync did not finish",
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// HasActiveApplications reports whether any unreversed application targets documentID
func (r *GormPaymentRepository) HasActiveApplications(ctx context.Context, orgID, documentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentApplicationModel{}).
		Scopes(forOrg(orgID)).
		Where("document_id = ? AND reversed_at IS NULL", documentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindApplicationsForDocument returns the applications against a document
func (r *GormPaymentRepository) FindApplicationsForDocument(ctx context.Context, orgID, documentID uuid.UUID) ([]finance.PaymentApplication, error) {
	var rows []models.PaymentApplicationModel
	if err := r.db.WithContext(ctx).
		Scopes(forOrg(orgID)).
		Where("document_id = ?", documentID).
		Order("applied_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	apps := make([]finance.PaymentApplication, len(rows))
	for i := range rows {
		apps[i] = rows[i].ToDomain()
	}
	return apps, nil
}

// SumCompletedSince totals COMPLETED payments dated at or after since
func (r *GormPaymentRepository) SumCompletedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(forOrg(orgID)).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("status = ? AND payment_date >= ?", finance.PaymentStatusCompleted, since).
		Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total, row.Count, nil
}

// CountBySyncStatus counts completed payments in the given sync status
func (r *GormPaymentRepository) CountBySyncStatus(ctx context.Context, orgID uuid.UUID, status finance.SyncStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(forOrg(orgID)).
		Where("status = ? AND sync_status = ?", finance.PaymentStatusCompleted, status).
		Count(&count).Error
	return count, err
}

// CountByCustomer counts every payment of a customer
func (r *GormPaymentRepository) CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(forOrg(orgID)).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}

// Save creates or overwrites a payment and its applications
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(ctx, tx, models.PaymentModelFromDomain(payment), payment); err != nil {
			return err
		}
		return saveApplications(ctx, tx, payment)
	})
}

// SaveWithLock saves a payment with optimistic locking, then its applications
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *finance.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(ctx, tx, models.PaymentModelFromDomain(payment), payment, "payment"); err != nil {
			return err
		}
		return saveApplications(ctx, tx, payment)
	})
}

// saveApplications upserts every application. Applications are never
// deleted; reversal only sets reversed_at.
func saveApplications(ctx context.Context, tx *gorm.DB, payment *finance.Payment) error {
	if len(payment.Applications) == 0 {
		return nil
	}
	rows := make([]models.PaymentApplicationModel, len(payment.Applications))
	for i, a := range payment.Applications {
		rows[i] = models.PaymentApplicationModelFromDomain(payment.OrganizationID, a)
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "reversed_at"}),
		}).
		Create(&rows).Error
}

func paymentsToDomain(rows []models.PaymentModel) []finance.Payment {
	payments := make([]finance.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
