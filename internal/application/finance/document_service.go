package finance

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService manages invoices, credit memos and debit memos
type DocumentService struct {
	documentRepo finance.DocumentRepository
	paymentRepo  finance.PaymentRepository
	customerRepo customer.Repository
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documentRepo finance.DocumentRepository,
	paymentRepo finance.PaymentRepository,
	customerRepo customer.Repository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// Create records a manually entered document. The due date defaults to the
// customer's payment terms.
func (s *DocumentService) Create(ctx context.Context, actor authz.Actor, req CreateDocumentRequest) (*DocumentResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}

	cust, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !cust.IsActive() {
		return nil, shared.NewDomainError("CUSTOMER_INACTIVE", "Documents cannot be created for an inactive customer")
	}

	docType := finance.DocumentType(req.Type)
	_, err = s.documentRepo.FindByNumber(ctx, actor.OrganizationID, docType, req.DocumentNumber)
	if err == nil {
		return nil, shared.NewDomainError("DOCUMENT_EXISTS", "A document with this number already exists")
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	params := finance.NewDocumentParams{
		DocumentNumber: req.DocumentNumber,
		CustomerID:     cust.ID,
		Type:           docType,
		TotalAmount:    req.TotalAmount,
		Currency:       req.Currency,
		Description:    req.Description,
	}
	if req.DocumentDate != nil {
		params.DocumentDate = *req.DocumentDate
	} else {
		params.DocumentDate = time.Now()
	}
	if req.DueDate != nil {
		params.DueDate = *req.DueDate
	} else {
		params.DueDate = cust.DueDateFor(params.DocumentDate)
	}

	doc, err := finance.NewDocument(actor.OrganizationID, params)
	if err != nil {
		return nil, err
	}
	if !actor.IsSystem() {
		doc.SetCreatedBy(actor.UserID)
	}
	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.publish(ctx, doc)

	s.logger.Info("Document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("document_number", doc.DocumentNumber),
		zap.String("type", doc.Type.String()))

	resp := ToDocumentResponse(doc, time.Now())
	return &resp, nil
}

// Get returns one document. Portal users only see their own customer's documents.
func (s *DocumentService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DocumentResponse, error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return nil, err
	}
	doc, err := s.documentRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCustomerAccess(doc.CustomerID); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc, time.Now())
	return &resp, nil
}

// List returns documents matching the request
func (s *DocumentService) List(ctx context.Context, actor authz.Actor, req ListDocumentsRequest) (shared.Paginated[DocumentResponse], error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return shared.Paginated[DocumentResponse]{}, err
	}
	customerID, err := actor.ScopeCustomer(req.CustomerID)
	if err != nil {
		return shared.Paginated[DocumentResponse]{}, err
	}
	req.CustomerID = customerID

	now := time.Now()
	filter := req.toFilter(now)
	docs, total, err := s.documentRepo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[DocumentResponse]{}, err
	}
	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = ToDocumentResponse(&docs[i], now)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Void cancels a document that has no active payment applications
func (s *DocumentService) Void(ctx context.Context, actor authz.Actor, id uuid.UUID, req VoidRequest) (*DocumentResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	doc, err := s.documentRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	hasActive, err := s.paymentRepo.HasActiveApplications(ctx, actor.OrganizationID, doc.ID)
	if err != nil {
		return nil, err
	}
	if err := doc.Void(req.Reason, hasActive); err != nil {
		return nil, err
	}
	if err := s.documentRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	s.publish(ctx, doc)

	s.logger.Info("Document voided",
		zap.String("document_id", doc.ID.String()),
		zap.String("reason", doc.VoidReason))

	resp := ToDocumentResponse(doc, time.Now())
	return &resp, nil
}

func (s *DocumentService) publish(ctx context.Context, doc *finance.Document) {
	if err := shared.PublishAndClear(ctx, s.publisher, doc); err != nil {
		s.logger.Warn("Failed to publish document events", zap.Error(err))
	}
}
