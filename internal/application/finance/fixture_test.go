package finance

import (
	"context"
	"maps"
	"testing"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// snapshotScope rolls the in-memory repositories back when fn fails, like a
// database transaction would
type snapshotScope struct {
	docs     *memoryDocuments
	payments *memoryPayments
}

func (s *snapshotScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.docs.mu.Lock()
	docSnap := maps.Clone(s.docs.docs)
	s.docs.mu.Unlock()
	s.payments.mu.Lock()
	paySnap := maps.Clone(s.payments.payments)
	s.payments.mu.Unlock()

	if err := fn(s); err != nil {
		s.docs.mu.Lock()
		s.docs.docs = docSnap
		s.docs.mu.Unlock()
		s.payments.mu.Lock()
		s.payments.payments = paySnap
		s.payments.mu.Unlock()
		return err
	}
	return nil
}

func (s *snapshotScope) DocumentRepo() finance.DocumentRepository { return s.docs }
func (s *snapshotScope) PaymentRepo() finance.PaymentRepository   { return s.payments }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestCustomer(t *testing.T, orgID uuid.UUID, number string) *customer.Customer {
	t.Helper()
	c, err := customer.NewCustomer(orgID, number, customer.Details{
		CompanyName:      "Acme " + number,
		Email:            "ap@" + number + ".test",
		PaymentTermsDays: 30,
	})
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func newTestInvoice(t *testing.T, orgID, customerID uuid.UUID, number, total string) *finance.Document {
	t.Helper()
	doc, err := finance.NewDocument(orgID, finance.NewDocumentParams{
		DocumentNumber: number,
		CustomerID:     customerID,
		Type:           finance.DocumentTypeInvoice,
		DocumentDate:   time.Now().AddDate(0, 0, -10),
		DueDate:        time.Now().AddDate(0, 0, 20),
		TotalAmount:    dec(total),
	})
	require.NoError(t, err)
	return doc
}

func staffActor(orgID uuid.UUID, role identity.Role) authz.Actor {
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Email: "staff@arflow.test", Role: role}
}

func portalActor(orgID, customerID uuid.UUID) authz.Actor {
	id := customerID
	return authz.Actor{OrganizationID: orgID, UserID: uuid.New(), Email: "portal@arflow.test", Role: identity.RoleCustomer, CustomerID: &id}
}

type paymentFixture struct {
	orgID     uuid.UUID
	cust      *customer.Customer
	other     *customer.Customer
	inv1      *finance.Document
	inv2      *finance.Document
	otherInv  *finance.Document
	docs      *memoryDocuments
	payments  *memoryPayments
	customers *MockCustomerRepository
	gateways  *MockGatewayProvider
	gateway   *MockPaymentGateway
	lock      shared.SyncLock
	publisher *recordingPublisher
	svc       *PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{orgID: uuid.New()}
	f.cust = newTestCustomer(t, f.orgID, "C-001")
	f.other = newTestCustomer(t, f.orgID, "C-002")
	f.inv1 = newTestInvoice(t, f.orgID, f.cust.ID, "INV-1", "100.00")
	f.inv2 = newTestInvoice(t, f.orgID, f.cust.ID, "INV-2", "50.00")
	f.otherInv = newTestInvoice(t, f.orgID, f.other.ID, "INV-9", "75.00")

	f.docs = newMemoryDocuments(f.inv1, f.inv2, f.otherInv)
	f.payments = newMemoryPayments()
	f.customers = new(MockCustomerRepository)
	f.customers.On("FindByIDForOrg", mock.Anything, f.orgID, f.cust.ID).Return(f.cust, nil).Maybe()
	f.customers.On("FindByIDForOrg", mock.Anything, f.orgID, f.other.ID).Return(f.other, nil).Maybe()

	f.gateway = new(MockPaymentGateway)
	f.gateway.On("GatewayType").Return(finance.GatewayTypeStripe).Maybe()
	f.gateways = new(MockGatewayProvider)
	lock := cache.NewInMemorySyncLock()
	t.Cleanup(func() { _ = lock.Close() })
	f.lock = lock
	f.publisher = &recordingPublisher{}

	f.svc = NewPaymentService(f.payments, f.docs, f.customers,
		&snapshotScope{docs: f.docs, payments: f.payments},
		f.gateways, f.lock, shared.DefaultLockConfig(), zap.NewNop())
	f.svc.SetEventPublisher(f.publisher)
	return f
}

// storedCompletedPayment saves a completed manual payment applied to inv1
func (f *paymentFixture) storedCompletedPayment(t *testing.T, amount, applied string) *finance.Payment {
	t.Helper()
	resp, err := f.svc.CreateManualPayment(context.Background(), staffActor(f.orgID, identity.RoleManager), CreateManualPaymentRequest{
		CustomerID:   f.cust.ID,
		Amount:       dec(amount),
		Method:       "CHECK",
		Applications: []ApplicationRequest{{DocumentID: f.inv1.ID, Amount: dec(applied)}},
	})
	require.NoError(t, err)
	p := f.payments.get(resp.ID)
	return &p
}
