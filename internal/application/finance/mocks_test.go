package finance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory repositories
// =============================================================================

// memoryDocuments is a finance.DocumentRepository over a map. Saved documents
// are copied so tests observe only what was persisted.
type memoryDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]finance.Document
	// failSave makes SaveWithLock fail for the listed document
	failSave map[uuid.UUID]error
}

func newMemoryDocuments(docs ...*finance.Document) *memoryDocuments {
	r := &memoryDocuments{docs: map[uuid.UUID]finance.Document{}, failSave: map[uuid.UUID]error{}}
	for _, d := range docs {
		d.MarkLoaded()
		d.ClearDomainEvents()
		r.docs[d.ID] = storedDocument(d)
	}
	return r
}

func (r *memoryDocuments) get(id uuid.UUID) finance.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id]
}

func (r *memoryDocuments) FindByIDForOrg(_ context.Context, orgID, id uuid.UUID) (*finance.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r *memoryDocuments) FindByIDsForOrg(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*finance.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*finance.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.docs[id]; ok && d.OrganizationID == orgID {
			d := d
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *memoryDocuments) FindByNumber(_ context.Context, orgID uuid.UUID, docType finance.DocumentType, number string) (*finance.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganizationID == orgID && d.Type == docType && d.DocumentNumber == number {
			d := d
			return &d, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryDocuments) FindByERPReferences(_ context.Context, orgID uuid.UUID, docType finance.DocumentType, refs []string) (map[string]*finance.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(refs))
	for _, ref := range refs {
		want[ref] = true
	}
	out := map[string]*finance.Document{}
	for _, d := range r.docs {
		if d.OrganizationID == orgID && d.Type == docType && want[d.ERPReference] {
			d := d
			out[d.ERPReference] = &d
		}
	}
	return out, nil
}

func (r *memoryDocuments) FindAllForOrg(_ context.Context, orgID uuid.UUID, filter finance.DocumentFilter) ([]finance.Document, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.Document
	for _, d := range r.docs {
		if d.OrganizationID != orgID {
			continue
		}
		if filter.CustomerID != nil && d.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.OverdueAsOf != nil && !d.IsOverdue(*filter.OverdueAsOf) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentNumber < out[j].DocumentNumber })
	return out, int64(len(out)), nil
}

func (r *memoryDocuments) FindOutstanding(_ context.Context, orgID uuid.UUID, customerID *uuid.UUID) ([]finance.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.Document
	for _, d := range r.docs {
		if d.OrganizationID != orgID || d.Status == finance.DocumentStatusVoid || !d.BalanceDue.IsPositive() {
			continue
		}
		if customerID != nil && d.CustomerID != *customerID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *memoryDocuments) CountByCustomer(_ context.Context, orgID, customerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.docs {
		if d.OrganizationID == orgID && d.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r *memoryDocuments) Save(_ context.Context, doc *finance.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.MarkLoaded()
	r.docs[doc.ID] = storedDocument(doc)
	return nil
}

func (r *memoryDocuments) SaveWithLock(_ context.Context, doc *finance.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave[doc.ID]; err != nil {
		return err
	}
	if cur, ok := r.docs[doc.ID]; ok && cur.Version != doc.LoadedVersion() {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "modified by another request")
	}
	doc.MarkLoaded()
	r.docs[doc.ID] = storedDocument(doc)
	return nil
}

// memoryPayments is a finance.PaymentRepository over a map
type memoryPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]finance.Payment
	saves    int
}

func newMemoryPayments(payments ...*finance.Payment) *memoryPayments {
	r := &memoryPayments{payments: map[uuid.UUID]finance.Payment{}}
	for _, p := range payments {
		p.MarkLoaded()
		p.ClearDomainEvents()
		r.payments[p.ID] = copyPayment(p)
	}
	return r
}

func copyPayment(p *finance.Payment) finance.Payment {
	c := *p
	c.Applications = append([]finance.PaymentApplication(nil), p.Applications...)
	c.ClearDomainEvents()
	return c
}

func storedDocument(d *finance.Document) finance.Document {
	c := *d
	c.ClearDomainEvents()
	return c
}

func (r *memoryPayments) get(id uuid.UUID) finance.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id]
}

func (r *memoryPayments) all() []finance.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out
}

func (r *memoryPayments) FindByIDForOrg(_ context.Context, orgID, id uuid.UUID) (*finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	c := copyPayment(&p)
	return &c, nil
}

func (r *memoryPayments) FindByGatewayTransaction(_ context.Context, orgID uuid.UUID, gateway finance.GatewayType, transactionID string) (*finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrganizationID == orgID && p.Gateway == gateway && p.GatewayTransactionID == transactionID {
			c := copyPayment(&p)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPayments) FindAllForOrg(_ context.Context, orgID uuid.UUID, filter finance.PaymentFilter) ([]finance.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.Payment
	for _, p := range r.payments {
		if p.OrganizationID != orgID {
			continue
		}
		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, copyPayment(&p))
	}
	return out, int64(len(out)), nil
}

func (r *memoryPayments) FindRecentForCustomer(_ context.Context, orgID, customerID uuid.UUID, limit int) ([]finance.Payment, error) {
	out, _, _ := r.FindAllForOrg(context.Background(), orgID, finance.PaymentFilter{CustomerID: &customerID})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryPayments) FindBySyncStatus(_ context.Context, orgID uuid.UUID, status finance.SyncStatus, limit int) ([]finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.Payment
	for _, p := range r.payments {
		if p.OrganizationID == orgID && p.SyncStatus == status && len(out) < limit {
			out = append(out, copyPayment(&p))
		}
	}
	return out, nil
}

func (r *memoryPayments) FailStaleSyncs(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.payments {
		if p.SyncStatus == finance.SyncStatusPending && p.UpdatedAt.Before(before) {
			p.SyncStatus = finance.SyncStatusFailed
			r.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (r *memoryPayments) HasActiveApplications(_ context.Context, orgID, documentID uuid.UUID) (bool, error) {
	apps, _ := r.FindApplicationsForDocument(context.Background(), orgID, documentID)
	for _, a := range apps {
		if a.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPayments) FindApplicationsForDocument(_ context.Context, orgID, documentID uuid.UUID) ([]finance.PaymentApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.PaymentApplication
	for _, p := range r.payments {
		if p.OrganizationID != orgID {
			continue
		}
		for _, a := range p.Applications {
			if a.DocumentID == documentID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (r *memoryPayments) SumCompletedSince(_ context.Context, orgID uuid.UUID, since time.Time) (decimal.Decimal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	var n int64
	for _, p := range r.payments {
		if p.OrganizationID == orgID && p.Status == finance.PaymentStatusCompleted && !p.PaymentDate.Before(since) {
			sum = sum.Add(p.Amount)
			n++
		}
	}
	return sum, n, nil
}

func (r *memoryPayments) CountBySyncStatus(_ context.Context, orgID uuid.UUID, status finance.SyncStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.OrganizationID == orgID && p.SyncStatus == status {
			n++
		}
	}
	return n, nil
}

func (r *memoryPayments) CountByCustomer(_ context.Context, orgID, customerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.OrganizationID == orgID && p.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r *memoryPayments) Save(_ context.Context, p *finance.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	p.MarkLoaded()
	r.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *memoryPayments) SaveWithLock(_ context.Context, p *finance.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.payments[p.ID]; ok && cur.Version != p.LoadedVersion() {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "modified by another request")
	}
	r.saves++
	p.MarkLoaded()
	r.payments[p.ID] = copyPayment(p)
	return nil
}

// =============================================================================
// testify mocks
// =============================================================================

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

// MockOrganizationRepository is a mock implementation of identity.OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindActive(ctx context.Context) ([]identity.Organization, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	return m.Called(ctx, org).Error(0)
}

// MockPaymentGateway is a mock implementation of finance.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) GatewayType() finance.GatewayType {
	return m.Called().Get(0).(finance.GatewayType)
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req *finance.ChargeRequest) (*finance.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, req *finance.RefundRequest) (*finance.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.RefundResult), args.Error(1)
}

func (m *MockPaymentGateway) Void(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

func (m *MockPaymentGateway) TestConnection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockGatewayProvider is a mock implementation of GatewayProvider
type MockGatewayProvider struct {
	mock.Mock
}

func (m *MockGatewayProvider) Resolve(ctx context.Context, orgID uuid.UUID, name finance.GatewayType) (finance.PaymentGateway, error) {
	args := m.Called(ctx, orgID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(finance.PaymentGateway), args.Error(1)
}

func (m *MockGatewayProvider) ForGateway(ctx context.Context, orgID uuid.UUID, gateway finance.GatewayType) (finance.PaymentGateway, error) {
	args := m.Called(ctx, orgID, gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(finance.PaymentGateway), args.Error(1)
}

func (m *MockGatewayProvider) WebhookSecret(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (string, error) {
	args := m.Called(ctx, orgID, provider)
	return args.String(0), args.Error(1)
}

// MockReceiptSender captures receipts
type MockReceiptSender struct {
	mock.Mock
}

func (m *MockReceiptSender) SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error {
	return m.Called(ctx, receipt).Error(0)
}

// recordingPublisher keeps published events in memory
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

// MockSettingsRepository is a mock implementation of integration.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) FindByProvider(ctx context.Context, orgID uuid.UUID, provider integration.Provider) (*integration.Settings, error) {
	args := m.Called(ctx, orgID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Settings), args.Error(1)
}

func (m *MockSettingsRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID) ([]integration.Settings, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).([]integration.Settings), args.Error(1)
}

func (m *MockSettingsRepository) FindEnabled(ctx context.Context, provider integration.Provider) ([]integration.Settings, error) {
	args := m.Called(ctx, provider)
	return args.Get(0).([]integration.Settings), args.Error(1)
}

func (m *MockSettingsRepository) FindDefaultGateway(ctx context.Context, orgID uuid.UUID) (*integration.Settings, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, s *integration.Settings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSettingsRepository) SaveWithLock(ctx context.Context, s *integration.Settings) error {
	return m.Called(ctx, s).Error(0)
}

// MockSyncLogRepository is a mock implementation of integration.SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Save(ctx context.Context, l *integration.SyncLog) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockSyncLogRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*integration.SyncLog, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter integration.SyncLogFilter) ([]integration.SyncLog, int64, error) {
	args := m.Called(ctx, orgID, filter)
	return args.Get(0).([]integration.SyncLog), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncLogRepository) FindLastSuccessful(ctx context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	args := m.Called(ctx, orgID, provider, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) FindLatest(ctx context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	args := m.Called(ctx, orgID, provider, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) CountFailedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, orgID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSyncLogRepository) FailStale(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
