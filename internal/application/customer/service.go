package customer

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	financeapp "github.com/arflow/backend/internal/application/finance"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const statementPaymentLimit = 10

// Service handles customer business operations
type Service struct {
	customerRepo customer.Repository
	documentRepo finance.DocumentRepository
	paymentRepo  finance.PaymentRepository
	publisher    shared.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new customer Service
func NewService(
	customerRepo customer.Repository,
	documentRepo finance.DocumentRepository,
	paymentRepo finance.PaymentRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		customerRepo: customerRepo,
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Create creates a manually entered customer
func (s *Service) Create(ctx context.Context, actor authz.Actor, req CreateCustomerRequest) (*CustomerResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}

	c, err := customer.NewCustomer(actor.OrganizationID, req.CustomerNumber, req.details())
	if err != nil {
		return nil, err
	}
	exists, err := s.customerRepo.ExistsByNumber(ctx, actor.OrganizationID, c.CustomerNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("CUSTOMER_EXISTS", "A customer with this number already exists")
	}

	if err := s.customerRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, c)
	logger.Enrich(ctx, s.logger).Info("customer created",
		zap.String("customer_id", c.ID.String()),
		zap.String("customer_number", c.CustomerNumber))

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Get returns a customer. Portal users only see their own customer.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// List returns a page of customers
func (s *Service) List(ctx context.Context, actor authz.Actor, req ListCustomersRequest) (shared.Paginated[CustomerResponse], error) {
	if err := actor.RequireStaff(); err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}
	filter := req.toFilter()
	customers, total, err := s.customerRepo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}
	items := make([]CustomerResponse, len(customers))
	for i := range customers {
		items[i] = ToCustomerResponse(&customers[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update replaces the customer profile. A non-zero version must match the
// stored one.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	c, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if req.Version > 0 && req.Version != c.Version {
		return nil, shared.ErrConcurrencyConflict
	}
	if err := c.Update(req.details()); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Activate makes an inactive customer available again
func (s *Service) Activate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, actor, id, (*customer.Customer).Activate)
}

// Deactivate hides a customer from new documents and payments
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, actor, id, (*customer.Customer).Deactivate)
}

func (s *Service) changeStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, change func(*customer.Customer) error) (*CustomerResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	c, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := change(c); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Delete removes a customer that has no documents and no payments
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := actor.RequireWriter(); err != nil {
		return err
	}
	c, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}

	docs, err := s.documentRepo.CountByCustomer(ctx, actor.OrganizationID, c.ID)
	if err != nil {
		return err
	}
	if docs > 0 {
		return shared.NewDomainError("CUSTOMER_HAS_DOCUMENTS", "Customer has documents and cannot be deleted; deactivate it instead")
	}
	payments, err := s.paymentRepo.CountByCustomer(ctx, actor.OrganizationID, c.ID)
	if err != nil {
		return err
	}
	if payments > 0 {
		return shared.NewDomainError("CUSTOMER_HAS_PAYMENTS", "Customer has payments and cannot be deleted; deactivate it instead")
	}

	if err := s.customerRepo.DeleteForOrg(ctx, actor.OrganizationID, c.ID); err != nil {
		return err
	}
	c.AddDomainEvent(customer.NewCustomerDeletedEvent(c))
	s.publish(ctx, c)
	logger.Enrich(ctx, s.logger).Info("customer deleted",
		zap.String("customer_id", c.ID.String()),
		zap.String("customer_number", c.CustomerNumber))
	return nil
}

// Statement returns the customer's open documents, latest payments and aging
func (s *Service) Statement(ctx context.Context, actor authz.Actor, id uuid.UUID) (*StatementResponse, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	docs, err := s.documentRepo.FindOutstanding(ctx, actor.OrganizationID, &c.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindRecentForCustomer(ctx, actor.OrganizationID, c.ID, statementPaymentLimit)
	if err != nil {
		return nil, err
	}

	resp := &StatementResponse{
		Customer:       ToCustomerResponse(c),
		AsOf:           now,
		OpenDocuments:  make([]financeapp.DocumentResponse, len(docs)),
		RecentPayments: make([]financeapp.PaymentResponse, len(payments)),
		Aging:          financeapp.ToAgingResponse(finance.BuildAgingReport(docs, now, &c.ID)),
	}
	for i := range docs {
		resp.OpenDocuments[i] = financeapp.ToDocumentResponse(&docs[i], now)
	}
	for i := range payments {
		resp.RecentPayments[i] = financeapp.ToPaymentResponse(&payments[i])
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.Customer, error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return nil, err
	}
	if err := actor.RequireCustomerAccess(id); err != nil {
		return nil, err
	}
	return s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
}

func (s *Service) save(ctx context.Context, c *customer.Customer) (*CustomerResponse, error) {
	if err := s.customerRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, c)
	resp := ToCustomerResponse(c)
	return &resp, nil
}

func (s *Service) publish(ctx context.Context, c *customer.Customer) {
	if err := shared.PublishAndClear(ctx, s.publisher, c); err != nil {
		s.logger.Warn("Failed to publish customer events", zap.Error(err))
	}
}
