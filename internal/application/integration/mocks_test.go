package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// ---------------------------------------------------------------------------
// Settings and sync logs
// ---------------------------------------------------------------------------

type settingsKey struct {
	org      uuid.UUID
	provider integration.Provider
}

type memorySettings struct {
	mu    sync.Mutex
	items map[settingsKey]*integration.Settings
}

func newMemorySettings(items ...*integration.Settings) *memorySettings {
	r := &memorySettings{items: make(map[settingsKey]*integration.Settings)}
	for _, s := range items {
		s.ClearDomainEvents()
		r.items[settingsKey{s.OrganizationID, s.Provider}] = s
	}
	return r
}

func (r *memorySettings) FindByProvider(_ context.Context, orgID uuid.UUID, provider integration.Provider) (*integration.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[settingsKey{orgID, provider}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *memorySettings) FindAllForOrg(_ context.Context, orgID uuid.UUID) ([]integration.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Settings
	for k, s := range r.items {
		if k.org == orgID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memorySettings) FindEnabled(_ context.Context, provider integration.Provider) ([]integration.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Settings
	for k, s := range r.items {
		if k.provider == provider && s.Enabled {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memorySettings) FindDefaultGateway(_ context.Context, orgID uuid.UUID) (*integration.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.items {
		if k.org == orgID && s.Enabled && s.Config.IsDefaultGateway {
			return s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memorySettings) Save(_ context.Context, s *integration.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[settingsKey{s.OrganizationID, s.Provider}] = s
	return nil
}

func (r *memorySettings) SaveWithLock(ctx context.Context, s *integration.Settings) error {
	return r.Save(ctx, s)
}

type memorySyncLogs struct {
	mu   sync.Mutex
	logs map[uuid.UUID]integration.SyncLog
}

func newMemorySyncLogs(logs ...integration.SyncLog) *memorySyncLogs {
	r := &memorySyncLogs{logs: make(map[uuid.UUID]integration.SyncLog)}
	for _, l := range logs {
		r.logs[l.ID] = l
	}
	return r
}

func (r *memorySyncLogs) Save(_ context.Context, l *integration.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	cp.Messages = append([]string(nil), l.Messages...)
	r.logs[l.ID] = cp
	return nil
}

func (r *memorySyncLogs) FindByIDForOrg(_ context.Context, orgID, id uuid.UUID) (*integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	return &l, nil
}

func (r *memorySyncLogs) FindAllForOrg(_ context.Context, orgID uuid.UUID, filter integration.SyncLogFilter) ([]integration.SyncLog, int64, error) {
	out := r.sorted(orgID, func(l integration.SyncLog) bool {
		return filter.Entity == nil || l.Entity == *filter.Entity
	})
	return out, int64(len(out)), nil
}

func (r *memorySyncLogs) FindLastSuccessful(_ context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	out := r.sorted(orgID, func(l integration.SyncLog) bool {
		return l.Provider == provider && l.Entity == entity &&
			(l.Status == integration.SyncLogStatusSuccess || l.Status == integration.SyncLogStatusPartial)
	})
	if len(out) == 0 {
		return nil, shared.ErrNotFound
	}
	return &out[0], nil
}

func (r *memorySyncLogs) FindLatest(_ context.Context, orgID uuid.UUID, provider integration.Provider, entity integration.SyncEntity) (*integration.SyncLog, error) {
	out := r.sorted(orgID, func(l integration.SyncLog) bool {
		return l.Provider == provider && l.Entity == entity
	})
	if len(out) == 0 {
		return nil, shared.ErrNotFound
	}
	return &out[0], nil
}

func (r *memorySyncLogs) CountFailedSince(_ context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	out := r.sorted(orgID, func(l integration.SyncLog) bool {
		return l.Status == integration.SyncLogStatusFailed && !l.StartedAt.Before(since)
	})
	return int64(len(out)), nil
}

func (r *memorySyncLogs) FailStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.logs {
		if l.Status == integration.SyncLogStatusRunning && l.StartedAt.Before(before) {
			l.Status = integration.SyncLogStatusFailed
			r.logs[id] = l
			n++
		}
	}
	return n, nil
}

// sorted returns the org's logs matching keep, newest first
func (r *memorySyncLogs) sorted(orgID uuid.UUID, keep func(integration.SyncLog) bool) []integration.SyncLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncLog
	for _, l := range r.logs {
		if l.OrganizationID == orgID && keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// ---------------------------------------------------------------------------
// Customers, documents, payments
// ---------------------------------------------------------------------------

type memoryCustomers struct {
	mu    sync.Mutex
	items map[uuid.UUID]*customer.Customer
	saves int
}

func newMemoryCustomers(items ...*customer.Customer) *memoryCustomers {
	r := &memoryCustomers{items: make(map[uuid.UUID]*customer.Customer)}
	for _, c := range items {
		c.ClearDomainEvents()
		r.items[c.ID] = c
	}
	return r
}

func (r *memoryCustomers) byNumber(number string) *customer.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.CustomerNumber == number {
			return c
		}
	}
	return nil
}

func (r *memoryCustomers) FindByIDForOrg(_ context.Context, orgID, id uuid.UUID) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCustomers) FindByNumber(_ context.Context, orgID uuid.UUID, number string) (*customer.Customer, error) {
	if c := r.byNumber(number); c != nil && c.OrganizationID == orgID {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryCustomers) FindByERPReferences(_ context.Context, orgID uuid.UUID, refs []string) (map[string]*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*customer.Customer)
	for _, ref := range refs {
		for _, c := range r.items {
			if c.OrganizationID == orgID && c.ERPReference == ref {
				out[ref] = c
			}
		}
	}
	return out, nil
}

func (r *memoryCustomers) FindAllForOrg(_ context.Context, orgID uuid.UUID, _ customer.Filter) ([]customer.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []customer.Customer
	for _, c := range r.items {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryCustomers) ExistsByNumber(ctx context.Context, orgID uuid.UUID, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, orgID, number)
	return err == nil, nil
}

func (r *memoryCustomers) Save(_ context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	r.saves++
	return nil
}

func (r *memoryCustomers) SaveWithLock(ctx context.Context, c *customer.Customer) error {
	return r.Save(ctx, c)
}

func (r *memoryCustomers) DeleteForOrg(_ context.Context, _, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memoryDocuments struct {
	mu    sync.Mutex
	items map[uuid.UUID]*finance.Document
}

func newMemoryDocuments(items ...*finance.Document) *memoryDocuments {
	r := &memoryDocuments{items: make(map[uuid.UUID]*finance.Document)}
	for _, d := range items {
		d.ClearDomainEvents()
		r.items[d.ID] = d
	}
	return r
}

func (r *memoryDocuments) find(keep func(*finance.Document) bool) []*finance.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.Document
	for _, d := range r.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (r *memoryDocuments) FindByIDForOrg(_ context.Context, orgID, id uuid.UUID) (*finance.Document, error) {
	found := r.find(func(d *finance.Document) bool { return d.ID == id && d.OrganizationID == orgID })
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return found[0], nil
}

func (r *memoryDocuments) FindByIDsForOrg(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*finance.Document, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.find(func(d *finance.Document) bool { return want[d.ID] && d.OrganizationID == orgID }), nil
}

func (r *memoryDocuments) FindByNumber(_ context.Context, orgID uuid.UUID, docType finance.DocumentType, number string) (*finance.Document, error) {
	found := r.find(func(d *finance.Document) bool {
		return d.OrganizationID == orgID && d.Type == docType && d.DocumentNumber == number
	})
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return found[0], nil
}

func (r *memoryDocuments) FindByERPReferences(_ context.Context, orgID uuid.UUID, docType finance.DocumentType, refs []string) (map[string]*finance.Document, error) {
	want := make(map[string]bool, len(refs))
	for _, ref := range refs {
		want[ref] = true
	}
	out := make(map[string]*finance.Document)
	for _, d := range r.find(func(d *finance.Document) bool {
		return d.OrganizationID == orgID && d.Type == docType && want[d.ERPReference]
	}) {
		out[d.ERPReference] = d
	}
	return out, nil
}

func (r *memoryDocuments) FindAllForOrg(_ context.Context, orgID uuid.UUID, _ finance.DocumentFilter) ([]finance.Document, int64, error) {
	var out []finance.Document
	for _, d := range r.find(func(d *finance.Document) bool { return d.OrganizationID == orgID }) {
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (r *memoryDocuments) FindOutstanding(_ context.Context, orgID uuid.UUID, customerID *uuid.UUID) ([]finance.Document, error) {
	var out []finance.Document
	for _, d := range r.find(func(d *finance.Document) bool {
		return d.OrganizationID == orgID && d.BalanceDue.IsPositive() && (customerID == nil || d.CustomerID == *customerID)
	}) {
		out = append(out, *d)
	}
	return out, nil
}

func (r *memoryDocuments) CountByCustomer(_ context.Context, orgID, customerID uuid.UUID) (int64, error) {
	return int64(len(r.find(func(d *finance.Document) bool {
		return d.OrganizationID == orgID && d.CustomerID == customerID
	}))), nil
}

func (r *memoryDocuments) Save(_ context.Context, d *finance.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[d.ID] = d
	return nil
}

func (r *memoryDocuments) SaveWithLock(ctx context.Context, d *finance.Document) error {
	return r.Save(ctx, d)
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

// ---------------------------------------------------------------------------
// Providers
// ---------------------------------------------------------------------------

// fakeERP is an in-memory Acumatica
type fakeERP struct {
	mu         sync.Mutex
	customers  []integration.ERPCustomer
	documents  []integration.ERPDocument
	loginErr   error
	createErr  error
	reference  string
	logins     int
	logouts    int
	since      []*time.Time
	pushed     []integration.ERPPayment
	factoryErr error
	lastConfig integration.Config
	lastCreds  integration.Credentials
	// block holds ListCustomers until closed
	block chan struct{}
}

func (f *fakeERP) New(cfg integration.Config, creds integration.Credentials) (integration.ERPClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastConfig, f.lastCreds = cfg, creds
	if f.factoryErr != nil {
		return nil, f.factoryErr
	}
	return f, nil
}

func (f *fakeERP) Login(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.logins++
	return nil
}

func (f *fakeERP) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeERP) ListCustomers(_ context.Context, since *time.Time) ([]integration.ERPCustomer, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	return f.customers, nil
}

func (f *fakeERP) ListDocuments(_ context.Context, since *time.Time) ([]integration.ERPDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	return f.documents, nil
}

func (f *fakeERP) CreatePayment(_ context.Context, p *integration.ERPPayment) (*integration.ERPPaymentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.pushed = append(f.pushed, *p)
	return &integration.ERPPaymentResult{ReferenceNbr: f.reference, Status: "Balanced"}, nil
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

// gatewayBuilder hands out one prepared gateway
type gatewayBuilder struct {
	gateway finance.PaymentGateway
	creds   integration.Credentials
}

func (b *gatewayBuilder) New(_ integration.Provider, _ integration.Config, creds integration.Credentials) (finance.PaymentGateway, error) {
	b.creds = creds
	return b.gateway, nil
}

// MockAuditRecorder is a mock implementation of AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordAction(ctx context.Context, actor authz.Actor, action, entityType string, entityID *uuid.UUID, metadata map[string]any) {
	m.Called(ctx, actor, action, entityType, entityID, metadata)
}

// recordingDispatcher records dispatched work instead of running it
type recordingDispatcher struct {
	mu       sync.Mutex
	payments []uuid.UUID
	entities []integration.SyncEntity
	triggers []integration.SyncTrigger
	err      error
}

func (d *recordingDispatcher) DispatchPaymentSync(_ context.Context, _, paymentID uuid.UUID, trigger integration.SyncTrigger) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.payments = append(d.payments, paymentID)
	d.triggers = append(d.triggers, trigger)
	return nil
}

func (d *recordingDispatcher) DispatchEntitySync(_ context.Context, _ uuid.UUID, entity integration.SyncEntity, trigger integration.SyncTrigger, _ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.entities = append(d.entities, entity)
	d.triggers = append(d.triggers, trigger)
	return nil
}

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
