package finance

import (
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeDocument is the aggregate type for AR documents
const AggregateTypeDocument = "Document"

// Document event types
const (
	EventTypeDocumentCreated         = "document.created"
	EventTypeDocumentPaymentApplied  = "document.payment_applied"
	EventTypeDocumentPaymentReversed = "document.payment_reversed"
	EventTypeDocumentVoided          = "document.voided"
)

// DocumentCreatedEvent is published when a document is created or imported
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"document_number"`
	DocumentType   DocumentType    `json:"document_type"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Source         DocumentSource  `json:"source"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID, d.OrganizationID, d.CreatedBy),
		DocumentNumber:  d.DocumentNumber,
		DocumentType:    d.Type,
		CustomerID:      d.CustomerID,
		TotalAmount:     d.TotalAmount,
		Source:          d.Source,
	}
}

// DocumentPaymentAppliedEvent is published when a payment reduces a balance
type DocumentPaymentAppliedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"document_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	Status         DocumentStatus  `json:"status"`
}

// NewDocumentPaymentAppliedEvent creates a new DocumentPaymentAppliedEvent
func NewDocumentPaymentAppliedEvent(d *Document, paymentID uuid.UUID, amount decimal.Decimal) *DocumentPaymentAppliedEvent {
	return &DocumentPaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPaymentApplied, AggregateTypeDocument, d.ID, d.OrganizationID, nil),
		DocumentNumber:  d.DocumentNumber,
		PaymentID:       paymentID,
		Amount:          amount,
		BalanceDue:      d.BalanceDue,
		Status:          d.Status,
	}
}

// DocumentPaymentReversedEvent is published when a voided payment restores a balance
type DocumentPaymentReversedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"document_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
}

// NewDocumentPaymentReversedEvent creates a new DocumentPaymentReversedEvent
func NewDocumentPaymentReversedEvent(d *Document, paymentID uuid.UUID, amount decimal.Decimal) *DocumentPaymentReversedEvent {
	return &DocumentPaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPaymentReversed, AggregateTypeDocument, d.ID, d.OrganizationID, nil),
		DocumentNumber:  d.DocumentNumber,
		PaymentID:       paymentID,
		Amount:          amount,
		BalanceDue:      d.BalanceDue,
	}
}

// DocumentVoidedEvent is published when a document is voided
type DocumentVoidedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string `json:"document_number"`
	Reason         string `json:"reason"`
}

// NewDocumentVoidedEvent creates a new DocumentVoidedEvent
func NewDocumentVoidedEvent(d *Document) *DocumentVoidedEvent {
	return &DocumentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentVoided, AggregateTypeDocument, d.ID, d.OrganizationID, nil),
		DocumentNumber:  d.DocumentNumber,
		Reason:          d.VoidReason,
	}
}
