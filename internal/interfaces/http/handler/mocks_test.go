package handler

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/customer"
	"github.com/arflow/backend/internal/application/finance"
	"github.com/arflow/backend/internal/application/identity"
	appintegration "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ptr returns the first result of a mock call as *T, allowing nil
func ptr[T any](args mock.Arguments) *T {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*T)
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Login(ctx context.Context, req identity.LoginRequest) (*identity.TokenResponse, error) {
	args := m.Called(ctx, req)
	return ptr[identity.TokenResponse](args), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, req identity.RefreshRequest) (*identity.TokenResponse, error) {
	args := m.Called(ctx, req)
	return ptr[identity.TokenResponse](args), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, jti string, remaining time.Duration) error {
	return m.Called(ctx, jti, remaining).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, actor authz.Actor) (*identity.UserResponse, error) {
	args := m.Called(ctx, actor)
	return ptr[identity.UserResponse](args), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, actor authz.Actor, req identity.ChangePasswordRequest) error {
	return m.Called(ctx, actor, req).Error(0)
}

type MockCustomerService struct{ mock.Mock }

func (m *MockCustomerService) Create(ctx context.Context, actor authz.Actor, req customer.CreateCustomerRequest) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, actor, req)
	return ptr[customer.CustomerResponse](args), args.Error(1)
}

func (m *MockCustomerService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[customer.CustomerResponse](args), args.Error(1)
}

func (m *MockCustomerService) List(ctx context.Context, actor authz.Actor, req customer.ListCustomersRequest) (shared.Paginated[customer.CustomerResponse], error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(shared.Paginated[customer.CustomerResponse]), args.Error(1)
}

func (m *MockCustomerService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req customer.UpdateCustomerRequest) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return ptr[customer.CustomerResponse](args), args.Error(1)
}

func (m *MockCustomerService) Activate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[customer.CustomerResponse](args), args.Error(1)
}

func (m *MockCustomerService) Deactivate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[customer.CustomerResponse](args), args.Error(1)
}

func (m *MockCustomerService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockCustomerService) Statement(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.StatementResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[customer.StatementResponse](args), args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) CreateManualPayment(ctx context.Context, actor authz.Actor, req finance.CreateManualPaymentRequest) (*finance.PaymentResponse, error) {
	args := m.Called(ctx, actor, req)
	return ptr[finance.PaymentResponse](args), args.Error(1)
}

func (m *MockPaymentService) ProcessCreditCardPayment(ctx context.Context, actor authz.Actor, req finance.ProcessCardPaymentRequest) (*finance.PaymentResponse, error) {
	args := m.Called(ctx, actor, req)
	return ptr[finance.PaymentResponse](args), args.Error(1)
}

func (m *MockPaymentService) ApplyPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req finance.ApplyPaymentRequest) (*finance.PaymentResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return ptr[finance.PaymentResponse](args), args.Error(1)
}

func (m *MockPaymentService) VoidPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req finance.VoidRequest) (*finance.PaymentResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return ptr[finance.PaymentResponse](args), args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*finance.PaymentResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[finance.PaymentResponse](args), args.Error(1)
}

func (m *MockPaymentService) List(ctx context.Context, actor authz.Actor, req finance.ListPaymentsRequest) (shared.Paginated[finance.PaymentResponse], error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(shared.Paginated[finance.PaymentResponse]), args.Error(1)
}

type MockSyncService struct{ mock.Mock }

func (m *MockSyncService) SyncCustomers(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req appintegration.SyncRequest) (*appintegration.SyncLogResponse, error) {
	args := m.Called(ctx, actor, trigger, req)
	return ptr[appintegration.SyncLogResponse](args), args.Error(1)
}

func (m *MockSyncService) SyncDocumentsFromAcumatica(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req appintegration.SyncRequest) (*appintegration.SyncLogResponse, error) {
	args := m.Called(ctx, actor, trigger, req)
	return ptr[appintegration.SyncLogResponse](args), args.Error(1)
}

func (m *MockSyncService) RetryFailedPaymentSyncs(ctx context.Context, actor authz.Actor) (*appintegration.RetryResponse, error) {
	args := m.Called(ctx, actor)
	return ptr[appintegration.RetryResponse](args), args.Error(1)
}

func (m *MockSyncService) ListLogs(ctx context.Context, actor authz.Actor, req appintegration.ListSyncLogsRequest) (shared.Paginated[appintegration.SyncLogResponse], error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(shared.Paginated[appintegration.SyncLogResponse]), args.Error(1)
}

func (m *MockSyncService) GetLog(ctx context.Context, actor authz.Actor, id uuid.UUID) (*appintegration.SyncLogResponse, error) {
	args := m.Called(ctx, actor, id)
	return ptr[appintegration.SyncLogResponse](args), args.Error(1)
}

func (m *MockSyncService) SyncPaymentToAcumatica(ctx context.Context, actor authz.Actor, paymentID uuid.UUID, trigger integration.SyncTrigger) (*appintegration.PaymentSyncResponse, error) {
	args := m.Called(ctx, actor, paymentID, trigger)
	return ptr[appintegration.PaymentSyncResponse](args), args.Error(1)
}

type MockSettingsService struct{ mock.Mock }

func (m *MockSettingsService) List(ctx context.Context, actor authz.Actor) ([]appintegration.SettingsResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appintegration.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, actor authz.Actor, provider integration.Provider, req appintegration.UpdateSettingsRequest) (*appintegration.SettingsResponse, error) {
	args := m.Called(ctx, actor, provider, req)
	return ptr[appintegration.SettingsResponse](args), args.Error(1)
}

func (m *MockSettingsService) TestConnection(ctx context.Context, actor authz.Actor, provider integration.Provider) (*appintegration.TestConnectionResponse, error) {
	args := m.Called(ctx, actor, provider)
	return ptr[appintegration.TestConnectionResponse](args), args.Error(1)
}

type MockWebhookService struct{ mock.Mock }

func (m *MockWebhookService) HandleStripe(ctx context.Context, orgID uuid.UUID, payload []byte, signature string) error {
	return m.Called(ctx, orgID, payload, signature).Error(0)
}
