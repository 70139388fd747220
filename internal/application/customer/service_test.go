package customer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type serviceFixture struct {
	orgID     uuid.UUID
	customers *MockCustomerRepository
	documents *MockDocumentRepository
	payments  *MockPaymentRepository
	publisher *recordingPublisher
	svc       *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		orgID:     uuid.New(),
		customers: new(MockCustomerRepository),
		documents: new(MockDocumentRepository),
		payments:  new(MockPaymentRepository),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(f.customers, f.documents, f.payments, f.publisher, zap.NewNop())
	return f
}

func (f *serviceFixture) stored(t *testing.T, number string) *customer.Customer {
	t.Helper()
	c, err := customer.NewCustomer(f.orgID, number, customer.Details{CompanyName: "Acme " + number, Email: "ap@acme.test"})
	require.NoError(t, err)
	c.ClearDomainEvents()
	f.customers.On("FindByIDForOrg", mock.Anything, f.orgID, c.ID).Return(c, nil).Maybe()
	return c
}

func manager(orgID uuid.UUID) authz.Actor {
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Role: identity.RoleManager}
}

func viewer(orgID uuid.UUID) authz.Actor {
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Role: identity.RoleViewer}
}

func portal(orgID, customerID uuid.UUID) authz.Actor {
	id := customerID
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Role: identity.RoleCustomer, CustomerID: &id}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer with default terms", func(t *testing.T) {
		f := newServiceFixture()
		f.customers.On("ExistsByNumber", ctx, f.orgID, "C-100").Return(false, nil)
		f.customers.On("Save", ctx, mock.AnythingOfType("*customer.Customer")).Return(nil)

		resp, err := f.svc.Create(ctx, manager(f.orgID), CreateCustomerRequest{
			CustomerNumber: "c-100",
			CompanyName:    "Acme Corp",
			Email:          "AP@Acme.test",
		})
		require.NoError(t, err)
		assert.Equal(t, "C-100", resp.CustomerNumber)
		assert.Equal(t, "ap@acme.test", resp.Email)
		assert.Equal(t, customer.DefaultPaymentTermsDays, resp.PaymentTermsDays)
		assert.Equal(t, "ACTIVE", resp.Status)
		assert.Equal(t, "MANUAL", resp.Source)
		assert.Equal(t, []string{customer.EventTypeCustomerCreated}, f.publisher.types())
	})

	t.Run("rejects duplicate number", func(t *testing.T) {
		f := newServiceFixture()
		f.customers.On("ExistsByNumber", ctx, f.orgID, "C-100").Return(true, nil)

		_, err := f.svc.Create(ctx, manager(f.orgID), CreateCustomerRequest{CustomerNumber: "C-100", CompanyName: "Acme"})
		assert.Equal(t, "CUSTOMER_EXISTS", shared.ErrorCode(err))
		f.customers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.svc.Create(ctx, viewer(f.orgID), CreateCustomerRequest{CustomerNumber: "C-100", CompanyName: "Acme"})
		assert.Equal(t, shared.ErrForbidden.Code, shared.ErrorCode(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates profile", func(t *testing.T) {
		f := newServiceFixture()
		c := f.stored(t, "C-1")
		f.customers.On("SaveWithLock", ctx, c).Return(nil)

		resp, err := f.svc.Update(ctx, manager(f.orgID), c.ID, UpdateCustomerRequest{
			CompanyName:      "Acme Renamed",
			PaymentTermsDays: 45,
			BillingAddress:   AddressRequest{City: "Austin", Country: "US"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Acme Renamed", resp.CompanyName)
		assert.Equal(t, 45, resp.PaymentTermsDays)
		assert.Equal(t, "Austin", resp.BillingAddress.City)
		assert.Equal(t, []string{customer.EventTypeCustomerUpdated}, f.publisher.types())
	})

	t.Run("stale version", func(t *testing.T) {
		f := newServiceFixture()
		c := f.stored(t, "C-1")

		_, err := f.svc.Update(ctx, manager(f.orgID), c.ID, UpdateCustomerRequest{CompanyName: "X", Version: c.Version + 3})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestService_Status(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	c := f.stored(t, "C-1")
	f.customers.On("SaveWithLock", ctx, c).Return(nil)

	resp, err := f.svc.Deactivate(ctx, manager(f.orgID), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", resp.Status)

	_, err = f.svc.Deactivate(ctx, manager(f.orgID), c.ID)
	assert.Equal(t, "INVALID_STATE", shared.ErrorCode(err))

	resp, err = f.svc.Activate(ctx, manager(f.orgID), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses customer with documents", func(t *testing.T) {
		f := newServiceFixture()
		c := f.stored(t, "C-1")
		f.documents.On("CountByCustomer", ctx, f.orgID, c.ID).Return(int64(2), nil)

		err := f.svc.Delete(ctx, manager(f.orgID), c.ID)
		assert.Equal(t, "CUSTOMER_HAS_DOCUMENTS", shared.ErrorCode(err))
		f.customers.AssertNotCalled(t, "DeleteForOrg", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refuses customer with payments", func(t *testing.T) {
		f := newServiceFixture()
		c := f.stored(t, "C-1")
		f.documents.On("CountByCustomer", ctx, f.orgID, c.ID).Return(int64(0), nil)
		f.payments.On("CountByCustomer", ctx, f.orgID, c.ID).Return(int64(1), nil)

		err := f.svc.Delete(ctx, manager(f.orgID), c.ID)
		assert.Equal(t, "CUSTOMER_HAS_PAYMENTS", shared.ErrorCode(err))
	})

	t.Run("deletes unused customer", func(t *testing.T) {
		f := newServiceFixture()
		c := f.stored(t, "C-1")
		f.documents.On("CountByCustomer", ctx, f.orgID, c.ID).Return(int64(0), nil)
		f.payments.On("CountByCustomer", ctx, f.orgID, c.ID).Return(int64(0), nil)
		f.customers.On("DeleteForOrg", ctx, f.orgID, c.ID).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, manager(f.orgID), c.ID))
		assert.Equal(t, []string{customer.EventTypeCustomerDeleted}, f.publisher.types())
	})
}

func TestService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	own := f.stored(t, "C-1")
	other := f.stored(t, "C-2")

	resp, err := f.svc.Get(ctx, portal(f.orgID, own.ID), own.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, resp.ID)

	_, err = f.svc.Get(ctx, portal(f.orgID, own.ID), other.ID)
	assert.True(t, shared.IsNotFound(err))

	_, err = f.svc.List(ctx, portal(f.orgID, own.ID), ListCustomersRequest{})
	assert.Equal(t, shared.ErrForbidden.Code, shared.ErrorCode(err))

	f.customers.On("FindAllForOrg", ctx, f.orgID, mock.MatchedBy(func(filter customer.Filter) bool {
		return filter.Page == 1 && filter.PageSize == 20 && filter.Status != nil && *filter.Status == customer.StatusActive
	})).Return([]customer.Customer{*own, *other}, int64(2), nil)

	page, err := f.svc.List(ctx, viewer(f.orgID), ListCustomersRequest{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
}

func TestService_Statement(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	c := f.stored(t, "C-1")
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	current, err := finance.NewDocument(f.orgID, finance.NewDocumentParams{
		DocumentNumber: "INV-1",
		CustomerID:     c.ID,
		Type:           finance.DocumentTypeInvoice,
		DocumentDate:   now.AddDate(0, 0, -5),
		DueDate:        now.AddDate(0, 0, 25),
		TotalAmount:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	late, err := finance.NewDocument(f.orgID, finance.NewDocumentParams{
		DocumentNumber: "INV-2",
		CustomerID:     c.ID,
		Type:           finance.DocumentTypeInvoice,
		DocumentDate:   now.AddDate(0, 0, -100),
		DueDate:        now.AddDate(0, 0, -95),
		TotalAmount:    decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	payment, err := finance.NewManualPayment(f.orgID, finance.NewPaymentParams{
		CustomerID:  c.ID,
		Amount:      decimal.NewFromInt(25),
		PaymentDate: now.AddDate(0, 0, -1),
		Method:      finance.PaymentMethodCheck,
	})
	require.NoError(t, err)

	f.documents.On("FindOutstanding", ctx, f.orgID, &c.ID).Return([]finance.Document{*current, *late}, nil)
	f.payments.On("FindRecentForCustomer", ctx, f.orgID, c.ID, statementPaymentLimit).Return([]finance.Payment{*payment}, nil)

	stmt, err := f.svc.Statement(ctx, portal(f.orgID, c.ID), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stmt.Customer.ID)
	assert.Len(t, stmt.OpenDocuments, 2)
	assert.Len(t, stmt.RecentPayments, 1)
	assert.True(t, decimal.NewFromInt(140).Equal(stmt.Aging.Total))
	assert.True(t, decimal.NewFromInt(40).Equal(stmt.Aging.Overdue))
	assert.True(t, decimal.NewFromInt(40).Equal(stmt.Aging.Buckets[string(finance.AgingBucketOver90)]))
}
