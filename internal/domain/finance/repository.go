package finance

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentFilter defines filtering options for document queries
type DocumentFilter struct {
	shared.Filter
	CustomerID  *uuid.UUID
	Status      *DocumentStatus
	Type        *DocumentType
	Source      *DocumentSource
	OverdueAsOf *time.Time // When set, only documents past due at this time
	FromDate    *time.Time
	ToDate      *time.Time
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByIDForOrg finds a document by ID within an organization
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Document, error)

	// FindByIDsForOrg finds several documents at once
	FindByIDsForOrg(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*Document, error)

	// FindByNumber finds a document by type and number
	FindByNumber(ctx context.Context, orgID uuid.UUID, docType DocumentType, number string) (*Document, error)

	// FindByERPReferences returns documents of docType keyed by ERP reference
	FindByERPReferences(ctx context.Context, orgID uuid.UUID, docType DocumentType, refs []string) (map[string]*Document, error)

	// FindAllForOrg lists documents matching the filter and the total count
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter DocumentFilter) ([]Document, int64, error)

	// FindOutstanding returns OPEN and PARTIAL documents, optionally for one customer
	FindOutstanding(ctx context.Context, orgID uuid.UUID, customerID *uuid.UUID) ([]Document, error)

	// CountByCustomer counts every document of a customer, including void ones
	CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error)

	// Save creates or updates a document
	Save(ctx context.Context, doc *Document) error

	// SaveWithLock saves with a version check, failing on concurrent modification
	SaveWithLock(ctx context.Context, doc *Document) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     *PaymentStatus
	Method     *PaymentMethod
	SyncStatus *SyncStatus
	FromDate   *time.Time
	ToDate     *time.Time
}

// PaymentRepository defines the interface for payment persistence.
// Applications are loaded and saved together with their payment.
type PaymentRepository interface {
	// FindByIDForOrg finds a payment by ID within an organization
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Payment, error)

	// FindByGatewayTransaction finds the payment captured as transactionID
	FindByGatewayTransaction(ctx context.Context, orgID uuid.UUID, gateway GatewayType, transactionID string) (*Payment, error)

	// FindAllForOrg lists payments matching the filter and the total count
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter PaymentFilter) ([]Payment, int64, error)

	// FindRecentForCustomer returns a customer's latest payments
	FindRecentForCustomer(ctx context.Context, orgID, customerID uuid.UUID, limit int) ([]Payment, error)

	// FindBySyncStatus returns completed payments in the given sync status, oldest first
	FindBySyncStatus(ctx context.Context, orgID uuid.UUID, status SyncStatus, limit int) ([]Payment, error)

	// HasActiveApplications reports whether any unreversed application targets documentID
	HasActiveApplications(ctx context.Context, orgID, documentID uuid.UUID) (bool, error)

	// FindApplicationsForDocument returns the applications against a document
	FindApplicationsForDocument(ctx context.Context, orgID, documentID uuid.UUID) ([]PaymentApplication, error)

	// SumCompletedSince totals COMPLETED payments dated at or after since
	SumCompletedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (decimal.Decimal, int64, error)

	// FailStaleSyncs marks pushes left PENDING since before as FAILED so that
	// retries pick them up again. It spans every organization.
	FailStaleSyncs(ctx context.Context, before time.Time) (int64, error)

	// CountBySyncStatus counts completed payments in the given sync status
	CountBySyncStatus(ctx context.Context, orgID uuid.UUID, status SyncStatus) (int64, error)

	// CountByCustomer counts every payment of a customer
	CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error)

	// Save creates or updates a payment and its applications
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with a version check, failing on concurrent modification
	SaveWithLock(ctx context.Context, payment *Payment) error
}
