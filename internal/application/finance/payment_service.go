package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService records, charges, applies and voids payments
type PaymentService struct {
	paymentRepo  finance.PaymentRepository
	documentRepo finance.DocumentRepository
	customerRepo customer.Repository
	txScope      TransactionScope
	gateways     GatewayProvider
	lock         shared.SyncLock
	lockConfig   shared.LockConfig
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo finance.PaymentRepository,
	documentRepo finance.DocumentRepository,
	customerRepo customer.Repository,
	txScope TransactionScope,
	gateways GatewayProvider,
	lock shared.SyncLock,
	lockConfig shared.LockConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		documentRepo: documentRepo,
		customerRepo: customerRepo,
		txScope:      txScope,
		gateways:     gateways,
		lock:         lock,
		lockConfig:   lockConfig,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher for payment and document events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateManualPayment records a payment received outside any gateway and
// applies it to the requested documents in one transaction
func (s *PaymentService) CreateManualPayment(ctx context.Context, actor authz.Actor, req CreateManualPaymentRequest) (*PaymentResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	cust, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	release, err := s.claimSubmission(ctx, actor.OrganizationID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	params := finance.NewPaymentParams{
		CustomerID:      cust.ID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Method:          finance.PaymentMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.PaymentDate != nil {
		params.PaymentDate = *req.PaymentDate
	}
	payment, err := finance.NewManualPayment(actor.OrganizationID, params)
	if err != nil {
		return nil, err
	}
	if !actor.IsSystem() {
		payment.SetCreatedBy(actor.UserID)
	}

	var touched []*finance.Document
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		touched, txErr = applyInScope(ctx, repos, payment, req.Applications)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	committed = true
	s.publish(ctx, payment, touched...)

	logger.Enrich(ctx, s.logger).Info("Manual payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("method", payment.Method.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Int("applications", len(payment.Applications)))

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// ProcessCreditCardPayment charges a tokenized card through the organization's
// gateway. The payment is saved PENDING before the charge, then COMPLETED with
// its applications or FAILED with the gateway's message. When the gateway
// cannot be reached the payment stays PENDING for the webhook to settle.
func (s *PaymentService) ProcessCreditCardPayment(ctx context.Context, actor authz.Actor, req ProcessCardPaymentRequest) (*PaymentResponse, error) {
	if err := actor.Require(identity.RoleAdmin, identity.RoleManager, identity.RoleCustomer); err != nil {
		return nil, err
	}
	if err := actor.RequireCustomerAccess(req.CustomerID); err != nil {
		return nil, err
	}
	cust, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !cust.IsActive() {
		return nil, shared.NewDomainError("CUSTOMER_INACTIVE", "Inactive customers cannot be charged")
	}

	release, err := s.claimSubmission(ctx, actor.OrganizationID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	charged := false
	defer func() {
		if !charged {
			release()
		}
	}()

	gateway, err := s.gateways.Resolve(ctx, actor.OrganizationID, finance.GatewayType(req.Gateway))
	if err != nil {
		return nil, err
	}
	payment, err := finance.NewCardPayment(actor.OrganizationID, finance.NewPaymentParams{
		CustomerID: cust.ID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Notes:      req.Notes,
	}, gateway.GatewayType())
	if err != nil {
		return nil, err
	}
	if !actor.IsSystem() {
		payment.SetCreatedBy(actor.UserID)
	}

	if len(req.Applications) > 0 {
		docs, err := loadDocuments(ctx, s.documentRepo, actor.OrganizationID, cust.ID, payment.Currency, req.Applications)
		if err != nil {
			return nil, err
		}
		if err := checkApplications(docs, payment.Amount, req.Applications); err != nil {
			return nil, err
		}
	}

	// A PENDING row exists before money moves. The charge carries its ID in
	// the metadata so the gateway webhook can settle it.
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	charged = true

	log := logger.Enrich(ctx, s.logger).With(
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("gateway", payment.Gateway.String()))

	idempotencyKey := payment.ID.String()
	if req.IdempotencyKey != "" {
		idempotencyKey = fmt.Sprintf("%s:%s", actor.OrganizationID, req.IdempotencyKey)
	}
	chargeCtx, span := telemetry.StartSpan(ctx, "payment.charge",
		telemetry.AttrOrganizationID.String(actor.OrganizationID.String()),
		telemetry.AttrPaymentID.String(payment.ID.String()),
		telemetry.AttrGateway.String(payment.Gateway.String()))
	result, chargeErr := gateway.Charge(chargeCtx, &finance.ChargeRequest{
		OrganizationID:    actor.OrganizationID,
		PaymentID:         payment.ID,
		PaymentNumber:     payment.PaymentNumber,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		PaymentToken:      req.PaymentToken,
		PaymentDescriptor: req.PaymentDescriptor,
		Description:       fmt.Sprintf("Payment %s from %s", payment.PaymentNumber, cust.CompanyName),
		CustomerEmail:     cust.Email,
		IdempotencyKey:    idempotencyKey,
		Metadata: map[string]string{
			"payment_id":      payment.ID.String(),
			"payment_number":  payment.PaymentNumber,
			"customer_number": cust.CustomerNumber,
		},
	})
	if chargeErr == nil && result != nil {
		span.SetAttributes(attribute.Bool("arflow.payment.approved", result.Approved))
	}
	telemetry.End(span, chargeErr)

	if chargeErr != nil || result == nil || !result.Approved {
		return nil, s.recordChargeFailure(ctx, log, payment, result, chargeErr)
	}

	if err := payment.MarkCompleted(result.TransactionID, result.CardBrand, result.CardLast4); err != nil {
		return nil, err
	}

	var touched []*finance.Document
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		touched, txErr = applyInScope(ctx, repos, payment, req.Applications)
		return txErr
	})
	if err != nil {
		// The card is charged: keep the money as an unapplied payment
		log.Error("Failed to apply charged payment, saving it unapplied",
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err))
		payment, err = s.completeUnapplied(ctx, payment.OrganizationID, payment.ID, result)
		if err != nil {
			return nil, err
		}
		touched = nil
	}
	s.publish(ctx, payment, touched...)

	log.Info("Card payment completed",
		zap.String("transaction_id", payment.GatewayTransactionID),
		zap.String("amount", payment.Amount.String()),
		zap.Int("applications", len(payment.Applications)))

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// recordChargeFailure saves the payment as FAILED and returns the error to
// report to the caller. A charge whose outcome is unknown leaves the payment
// PENDING instead, since the card may have been charged.
func (s *PaymentService) recordChargeFailure(ctx context.Context, log *zap.Logger, payment *finance.Payment, result *finance.ChargeResult, chargeErr error) error {
	if chargeOutcomeUnknown(chargeErr) {
		log.Warn("Card charge outcome unknown, payment left pending", zap.Error(chargeErr))
		return chargeErr
	}

	reason := "Payment was not approved"
	transactionID := ""
	if result != nil {
		transactionID = result.TransactionID
		if result.FailureMessage != "" {
			reason = result.FailureMessage
		}
	}
	if chargeErr != nil && (result == nil || result.FailureMessage == "") {
		reason = chargeErr.Error()
	}

	if err := payment.MarkFailed(transactionID, reason); err != nil {
		return err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		log.Error("Failed to save failed payment", zap.Error(err))
	}
	s.publish(ctx, payment)

	log.Warn("Card payment failed", zap.String("reason", reason), zap.Error(chargeErr))

	if chargeErr == nil || errors.Is(chargeErr, finance.ErrGatewayDeclined) {
		return shared.NewDomainError("PAYMENT_DECLINED", reason)
	}
	return chargeErr
}

// chargeOutcomeUnknown reports whether the gateway may have charged the card
// even though no answer arrived
func chargeOutcomeUnknown(err error) bool {
	return errors.Is(err, finance.ErrGatewayUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// completeUnapplied reloads the PENDING payment and completes it without
// applications
func (s *PaymentService) completeUnapplied(ctx context.Context, orgID, id uuid.UUID, result *finance.ChargeResult) (*finance.Payment, error) {
	payment, err := s.paymentRepo.FindByIDForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkCompleted(result.TransactionID, result.CardBrand, result.CardLast4); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ApplyPayment applies the unapplied part of a completed payment to documents
func (s *PaymentService) ApplyPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req ApplyPaymentRequest) (*PaymentResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}

	var (
		payment *finance.Payment
		touched []*finance.Document
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		payment, txErr = repos.PaymentRepo().FindByIDForOrg(ctx, actor.OrganizationID, id)
		if txErr != nil {
			return txErr
		}
		if payment.Status != finance.PaymentStatusCompleted {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot apply payment in %s status", payment.Status))
		}
		touched, txErr = applyInScope(ctx, repos, payment, req.Applications)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, payment, touched...)

	logger.Enrich(ctx, s.logger).Info("Payment applied",
		zap.String("payment_id", payment.ID.String()),
		zap.String("unapplied", payment.UnappliedAmount().String()))

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// VoidPayment cancels a completed payment and restores the balances it paid.
// Card payments are refunded through their gateway first, or voided there
// when the gateway refuses a refund of an unsettled transaction. A payment the
// gateway already refunded is marked refunded.
func (s *PaymentService) VoidPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req VoidRequest) (*PaymentResponse, error) {
	if err := actor.RequireWriter(); err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != finance.PaymentStatusCompleted {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot void payment in %s status", payment.Status))
	}

	log := logger.Enrich(ctx, s.logger).With(
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber))

	var reversed []finance.PaymentApplication
	if payment.IsGatewayPayment() {
		reversed, err = s.reverseAtGateway(ctx, payment, req.Reason)
	} else {
		reversed, err = payment.Void(req.Reason)
	}
	if err != nil {
		return nil, err
	}

	var touched []*finance.Document
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		touched, txErr = reverseInScope(ctx, repos, payment, reversed)
		return txErr
	})
	if err != nil {
		log.Error("Failed to save voided payment", zap.String("refund_id", payment.RefundID), zap.Error(err))
		return nil, err
	}
	s.publish(ctx, payment, touched...)

	if payment.IsSynced() {
		log.Warn("Voided payment is already in the ERP and must be reversed there",
			zap.String("erp_reference", payment.ERPReference))
	}
	log.Info("Payment voided", zap.String("status", payment.Status.String()))

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

func (s *PaymentService) reverseAtGateway(ctx context.Context, payment *finance.Payment, reason string) ([]finance.PaymentApplication, error) {
	gateway, err := s.gateways.ForGateway(ctx, payment.OrganizationID, payment.Gateway)
	if err != nil {
		return nil, err
	}
	refund, err := gateway.Refund(ctx, &finance.RefundRequest{
		TransactionID: payment.GatewayTransactionID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		CardLast4:     payment.CardLast4,
		Reason:        reason,
	})
	if errors.Is(err, finance.ErrAlreadyRefunded) {
		return payment.MarkRefunded(payment.RefundID, reason)
	}
	if errors.Is(err, finance.ErrRefundNotAllowed) {
		if err := gateway.Void(ctx, payment.GatewayTransactionID); err != nil {
			return nil, err
		}
		return payment.Void(reason)
	}
	if err != nil {
		return nil, err
	}
	return payment.MarkRefunded(refund.RefundID, reason)
}

// Get returns one payment. Portal users only see their own customer's payments.
func (s *PaymentService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PaymentResponse, error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCustomerAccess(payment.CustomerID); err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns payments matching the request
func (s *PaymentService) List(ctx context.Context, actor authz.Actor, req ListPaymentsRequest) (shared.Paginated[PaymentResponse], error) {
	if err := actor.Require(identity.AllRoles...); err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	customerID, err := actor.ScopeCustomer(req.CustomerID)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	req.CustomerID = customerID

	filter := req.toFilter()
	payments, total, err := s.paymentRepo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToPaymentResponse(&payments[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// claimSubmission takes the idempotency key of a payment submission. The
// returned release frees it again when the submission fails before money or
// rows were committed, so the client may retry.
func (s *PaymentService) claimSubmission(ctx context.Context, orgID uuid.UUID, key string) (func(), error) {
	if key == "" || s.lock == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("submission:%s:%s", orgID, key)
	token, err := s.lock.Acquire(ctx, lockKey, s.lockConfig.SubmissionTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire submission key: %w", err)
	}
	if token == "" {
		return nil, shared.ErrDuplicateSubmission
	}
	return func() {
		// Released with a fresh context: the request context may be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx, lockKey, token); err != nil {
			s.logger.Warn("Failed to release submission key", zap.String("key", lockKey), zap.Error(err))
		}
	}, nil
}

func (s *PaymentService) publish(ctx context.Context, payment *finance.Payment, docs ...*finance.Document) {
	if err := shared.PublishAndClear(ctx, s.publisher, payment); err != nil {
		s.logger.Warn("Failed to publish payment events", zap.Error(err))
	}
	for _, doc := range docs {
		if err := shared.PublishAndClear(ctx, s.publisher, doc); err != nil {
			s.logger.Warn("Failed to publish document events", zap.Error(err))
		}
	}
}
