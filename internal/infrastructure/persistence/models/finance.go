package models

import (
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Composite uniqueness ((organization_id, type, document_number) and the
// like) is enforced by the SQL migrations.

// DocumentModel is the persistence model for the Document aggregate
type DocumentModel struct {
	OrgAggregateModel
	DocumentNumber string                 `gorm:"type:varchar(50);not null;index"`
	CustomerID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type           finance.DocumentType   `gorm:"type:varchar(20);not null"`
	Status         finance.DocumentStatus `gorm:"type:varchar(20);not null;index"`
	DocumentDate   time.Time              `gorm:"not null"`
	DueDate        time.Time              `gorm:"not null;index"`
	TotalAmount    decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	AmountPaid     decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceDue     decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Currency       string                 `gorm:"type:char(3);not null"`
	Description    string                 `gorm:"type:text"`
	ERPReference   string                 `gorm:"column:erp_reference;type:varchar(50);index"`
	Source         finance.DocumentSource `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	LastSyncedAt   *time.Time
	VoidedAt       *time.Time
	VoidReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the model to a domain Document
func (m *DocumentModel) ToDomain() *finance.Document {
	return &finance.Document{
		OrgAggregateRoot: m.OrgAggregateModel.toDomain(),
		DocumentNumber:   m.DocumentNumber,
		CustomerID:       m.CustomerID,
		Type:             m.Type,
		Status:           m.Status,
		DocumentDate:     m.DocumentDate,
		DueDate:          m.DueDate,
		TotalAmount:      m.TotalAmount,
		AmountPaid:       m.AmountPaid,
		BalanceDue:       m.BalanceDue,
		Currency:         m.Currency,
		Description:      m.Description,
		ERPReference:     m.ERPReference,
		Source:           m.Source,
		LastSyncedAt:     m.LastSyncedAt,
		VoidedAt:         m.VoidedAt,
		VoidReason:       m.VoidReason,
	}
}

// DocumentModelFromDomain creates a model from a domain Document
func DocumentModelFromDomain(d *finance.Document) *DocumentModel {
	m := &DocumentModel{
		DocumentNumber: d.DocumentNumber,
		CustomerID:     d.CustomerID,
		Type:           d.Type,
		Status:         d.Status,
		DocumentDate:   d.DocumentDate,
		DueDate:        d.DueDate,
		TotalAmount:    d.TotalAmount,
		AmountPaid:     d.AmountPaid,
		BalanceDue:     d.BalanceDue,
		Currency:       d.Currency,
		Description:    d.Description,
		ERPReference:   d.ERPReference,
		Source:         d.Source,
		LastSyncedAt:   d.LastSyncedAt,
		VoidedAt:       d.VoidedAt,
		VoidReason:     d.VoidReason,
	}
	m.FromDomainOrgAggregateRoot(d.OrgAggregateRoot)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate
type PaymentModel struct {
	OrgAggregateModel
	PaymentNumber        string                `gorm:"type:varchar(30);not null;index"`
	CustomerID           uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount               decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency             string                `gorm:"type:char(3);not null"`
	PaymentDate          time.Time             `gorm:"not null;index"`
	Method               finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status               finance.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	Gateway              finance.GatewayType   `gorm:"type:varchar(20);not null;default:'NONE'"`
	GatewayTransactionID string                `gorm:"type:varchar(100);index"`
	CardBrand            string                `gorm:"type:varchar(30)"`
	CardLast4            string                `gorm:"type:varchar(4)"`
	ReferenceNumber      string                `gorm:"type:varchar(100)"`
	Notes                string                `gorm:"type:text"`
	FailureReason        string                `gorm:"type:varchar(500)"`
	RefundID             string                `gorm:"type:varchar(100)"`
	VoidedAt             *time.Time
	VoidReason           string             `gorm:"type:varchar(500)"`
	SyncStatus           finance.SyncStatus `gorm:"type:varchar(20);not null;default:'NOT_SYNCED';index"`
	ERPReference         string             `gorm:"column:erp_reference;type:varchar(50)"`
	SyncError            string             `gorm:"type:text"`
	SyncedAt             *time.Time
	SyncAttempts         int                       `gorm:"not null;default:0"`
	Applications         []PaymentApplicationModel `gorm:"foreignKey:PaymentID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model and its preloaded applications to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	apps := make([]finance.PaymentApplication, len(m.Applications))
	for i := range m.Applications {
		apps[i] = m.Applications[i].ToDomain()
	}
	return &finance.Payment{
		OrgAggregateRoot:     m.OrgAggregateModel.toDomain(),
		PaymentNumber:        m.PaymentNumber,
		CustomerID:           m.CustomerID,
		Amount:               m.Amount,
		Currency:             m.Currency,
		PaymentDate:          m.PaymentDate,
		Method:               m.Method,
		Status:               m.Status,
		Gateway:              m.Gateway,
		GatewayTransactionID: m.GatewayTransactionID,
		CardBrand:            m.CardBrand,
		CardLast4:            m.CardLast4,
		ReferenceNumber:      m.ReferenceNumber,
		Notes:                m.Notes,
		FailureReason:        m.FailureReason,
		RefundID:             m.RefundID,
		VoidedAt:             m.VoidedAt,
		VoidReason:           m.VoidReason,
		SyncStatus:           m.SyncStatus,
		ERPReference:         m.ERPReference,
		SyncError:            m.SyncError,
		SyncedAt:             m.SyncedAt,
		SyncAttempts:         m.SyncAttempts,
		Applications:         apps,
	}
}

// PaymentModelFromDomain creates a model from a domain Payment. Applications
// are not attached; repositories write them separately.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentNumber:        p.PaymentNumber,
		CustomerID:           p.CustomerID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		PaymentDate:          p.PaymentDate,
		Method:               p.Method,
		Status:               p.Status,
		Gateway:              p.Gateway,
		GatewayTransactionID: p.GatewayTransactionID,
		CardBrand:            p.CardBrand,
		CardLast4:            p.CardLast4,
		ReferenceNumber:      p.ReferenceNumber,
		Notes:                p.Notes,
		FailureReason:        p.FailureReason,
		RefundID:             p.RefundID,
		VoidedAt:             p.VoidedAt,
		VoidReason:           p.VoidReason,
		SyncStatus:           p.SyncStatus,
		ERPReference:         p.ERPReference,
		SyncError:            p.SyncError,
		SyncedAt:             p.SyncedAt,
		SyncAttempts:         p.SyncAttempts,
	}
	m.FromDomainOrgAggregateRoot(p.OrgAggregateRoot)
	return m
}

// PaymentApplicationModel is one allocation of a payment to a document
type PaymentApplicationModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AppliedAt      time.Time       `gorm:"not null"`
	ReversedAt     *time.Time
}

// TableName returns the table name for GORM
func (PaymentApplicationModel) TableName() string {
	return "payment_applications"
}

// ToDomain converts the model to a domain PaymentApplication
func (m *PaymentApplicationModel) ToDomain() finance.PaymentApplication {
	return finance.PaymentApplication{
		ID:         m.ID,
		PaymentID:  m.PaymentID,
		DocumentID: m.DocumentID,
		Amount:     m.Amount,
		AppliedAt:  m.AppliedAt,
		ReversedAt: m.ReversedAt,
	}
}

// PaymentApplicationModelFromDomain creates a model for an application of a payment in orgID
func PaymentApplicationModelFromDomain(orgID uuid.UUID, a finance.PaymentApplication) PaymentApplicationModel {
	return PaymentApplicationModel{
		ID:             a.ID,
		OrganizationID: orgID,
		PaymentID:      a.PaymentID,
		DocumentID:     a.DocumentID,
		Amount:         a.Amount,
		AppliedAt:      a.AppliedAt,
		ReversedAt:     a.ReversedAt,
	}
}
