package customer

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCustomerRepository is a mock implementation of customer.Repository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*customer.Customer, error) {
	args := m.Called(ctx, orgID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByERPReferences(ctx context.Context, orgID uuid.UUID, refs []string) (map[string]*customer.Customer, error) {
	args := m.Called(ctx, orgID, refs)
	return args.Get(0).(map[string]*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter customer.Filter) ([]customer.Customer, int64, error) {
	args := m.Called(ctx, orgID, filter)
	return args.Get(0).([]customer.Customer), args.Get(1).(int64), args.Error(2)
}

func (m *MockCustomerRepository) ExistsByNumber(ctx context.Context, orgID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, orgID, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCustomerRepository) SaveWithLock(ctx context.Context, c *customer.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCustomerRepository) DeleteForOrg(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

// MockDocumentRepository is a mock implementation of finance.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*finance.Document, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByIDsForOrg(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*finance.Document, error) {
	args := m.Called(ctx, orgID, ids)
	return args.Get(0).([]*finance.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, docType finance.DocumentType, number string) (*finance.Document, error) {
	args := m.Called(ctx, orgID, docType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByERPReferences(ctx context.Context, orgID uuid.UUID, docType finance.DocumentType, refs []string) (map[string]*finance.Document, error) {
	args := m.Called(ctx, orgID, docType, refs)
	return args.Get(0).(map[string]*finance.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter finance.DocumentFilter) ([]finance.Document, int64, error) {
	args := m.Called(ctx, orgID, filter)
	return args.Get(0).([]finance.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) FindOutstanding(ctx context.Context, orgID uuid.UUID, customerID *uuid.UUID) ([]finance.Document, error) {
	args := m.Called(ctx, orgID, customerID)
	return args.Get(0).([]finance.Document), args.Error(1)
}

func (m *MockDocumentRepository) CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *finance.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, doc *finance.Document) error {
	return m.Called(ctx, doc).Error(0)
}

// MockPaymentRepository is a mock implementation of finance.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*finance.Payment, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByGatewayTransaction(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType, transactionID string) (*finance.Payment, error) {
	args := m.Called(ctx, orgID, gateway, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter finance.PaymentFilter) ([]finance.Payment, int64, error) {
	args := m.Called(ctx, orgID, filter)
	return args.Get(0).([]finance.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) FindRecentForCustomer(ctx context.Context, orgID, customerID uuid.UUID, limit int) ([]finance.Payment, error) {
	args := m.Called(ctx, orgID, customerID, limit)
	return args.Get(0).([]finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindBySyncStatus(ctx context.Context, orgID uuid.UUID, status finance.SyncStatus, limit int) ([]finance.Payment, error) {
	args := m.Called(ctx, orgID, status, limit)
	return args.Get(0).([]finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FailStaleSyncs(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) HasActiveApplications(ctx context.Context, orgID, documentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) FindApplicationsForDocument(ctx context.Context, orgID, documentID uuid.UUID) ([]finance.PaymentApplication, error) {
	args := m.Called(ctx, orgID, documentID)
	return args.Get(0).([]finance.PaymentApplication), args.Error(1)
}

func (m *MockPaymentRepository) SumCompletedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (decimal.Decimal, int64, error) {
	args := m.Called(ctx, orgID, since)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) CountBySyncStatus(ctx context.Context, orgID uuid.UUID, status finance.SyncStatus) (int64, error) {
	args := m.Called(ctx, orgID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) CountByCustomer(ctx context.Context, orgID, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, p *finance.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, p *finance.Payment) error {
	return m.Called(ctx, p).Error(0)
}
