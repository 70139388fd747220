package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptLine is one document a payment was applied to
type ReceiptLine struct {
	DocumentNumber string
	DocumentType   string
	Amount         decimal.Decimal
}

// PaymentReceipt is everything a receipt email shows
type PaymentReceipt struct {
	OrganizationName string
	Timezone         string
	PaymentID        uuid.UUID
	PaymentNumber    string
	CustomerName     string
	Email            string
	Amount           decimal.Decimal
	Unapplied        decimal.Decimal
	Currency         string
	Method           string
	PaymentDate      time.Time
	CardBrand        string
	CardLast4        string
	ReferenceNumber  string
	Lines            []ReceiptLine
}

// ReceiptSender delivers payment receipts
type ReceiptSender interface {
	SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error
}

// ReceiptHandler emails a receipt to the customer of every completed payment
type ReceiptHandler struct {
	paymentRepo  finance.PaymentRepository
	documentRepo finance.DocumentRepository
	customerRepo customer.Repository
	orgRepo      identity.OrganizationRepository
	sender       ReceiptSender
	logger       *zap.Logger
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(
	paymentRepo finance.PaymentRepository,
	documentRepo finance.DocumentRepository,
	customerRepo customer.Repository,
	orgRepo identity.OrganizationRepository,
	sender ReceiptSender,
	logger *zap.Logger,
) *ReceiptHandler {
	return &ReceiptHandler{
		paymentRepo:  paymentRepo,
		documentRepo: documentRepo,
		customerRepo: customerRepo,
		orgRepo:      orgRepo,
		sender:       sender,
		logger:       logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReceiptHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentCreated}
}

// Handle sends the receipt. A customer without an email address gets none.
func (h *ReceiptHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*finance.PaymentCreatedEvent)
	if !ok {
		return errors.New("receipt handler: unexpected event type")
	}

	payment, err := h.paymentRepo.FindByIDForOrg(ctx, created.OrganizationID(), created.AggregateID())
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	cust, err := h.customerRepo.FindByIDForOrg(ctx, payment.OrganizationID, payment.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	if cust.Email == "" {
		h.logger.Debug("No receipt sent, customer has no email",
			zap.String("payment_id", payment.ID.String()))
		return nil
	}
	org, err := h.orgRepo.FindByID(ctx, payment.OrganizationID)
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}

	receipt := PaymentReceipt{
		OrganizationName: org.Name,
		Timezone:         org.Timezone,
		PaymentID:        payment.ID,
		PaymentNumber:    payment.PaymentNumber,
		CustomerName:     cust.CompanyName,
		Email:            cust.Email,
		Amount:           payment.Amount,
		Unapplied:        payment.UnappliedAmount(),
		Currency:         payment.Currency,
		Method:           payment.Method.String(),
		PaymentDate:      payment.PaymentDate,
		CardBrand:        payment.CardBrand,
		CardLast4:        payment.CardLast4,
		ReferenceNumber:  payment.ReferenceNumber,
	}

	active := payment.ActiveApplications()
	if len(active) > 0 {
		ids := make([]uuid.UUID, len(active))
		for i, app := range active {
			ids[i] = app.DocumentID
		}
		docs, err := h.documentRepo.FindByIDsForOrg(ctx, payment.OrganizationID, ids)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		byID := make(map[uuid.UUID]*finance.Document, len(docs))
		for _, d := range docs {
			byID[d.ID] = d
		}
		for _, app := range active {
			line := ReceiptLine{Amount: app.Amount}
			if doc, ok := byID[app.DocumentID]; ok {
				line.DocumentNumber = doc.DocumentNumber
				line.DocumentType = doc.Type.String()
			}
			receipt.Lines = append(receipt.Lines, line)
		}
	}

	if err := h.sender.SendPaymentReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("send receipt for %s: %w", payment.PaymentNumber, err)
	}
	h.logger.Info("Payment receipt sent",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber))
	return nil
}

var _ shared.EventHandler = (*ReceiptHandler)(nil)
