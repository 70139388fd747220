package finance

import (
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePayment is the aggregate type for payments
const AggregateTypePayment = "Payment"

// Payment event types
const (
	EventTypePaymentCreated    = "payment.created"
	EventTypePaymentFailed     = "payment.failed"
	EventTypePaymentApplied    = "payment.applied"
	EventTypePaymentVoided     = "payment.voided"
	EventTypePaymentRefunded   = "payment.refunded"
	EventTypePaymentSynced     = "payment.synced"
	EventTypePaymentSyncFailed = "payment.sync_failed"
)

// PaymentCreatedEvent is published when a payment is completed
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        PaymentMethod   `json:"method"`
	Gateway       GatewayType     `json:"gateway"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, p.ID, p.OrganizationID, p.CreatedBy),
		PaymentNumber:   p.PaymentNumber,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Method:          p.Method,
		Gateway:         p.Gateway,
	}
}

// PaymentFailedEvent is published when a gateway charge fails
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	Gateway       GatewayType     `json:"gateway"`
	Reason        string          `json:"reason"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypePayment, p.ID, p.OrganizationID, p.CreatedBy),
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		Gateway:         p.Gateway,
		Reason:          p.FailureReason,
	}
}

// PaymentAppliedEvent is published when part of a payment is applied to a document
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	DocumentID    uuid.UUID       `json:"document_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(p *Payment, documentID uuid.UUID, amount decimal.Decimal) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypePayment, p.ID, p.OrganizationID, nil),
		PaymentNumber:   p.PaymentNumber,
		DocumentID:      documentID,
		Amount:          amount,
	}
}

// PaymentVoidedEvent is published when a payment is voided
type PaymentVoidedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

// NewPaymentVoidedEvent creates a new PaymentVoidedEvent
func NewPaymentVoidedEvent(p *Payment) *PaymentVoidedEvent {
	return &PaymentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentVoided, AggregateTypePayment, p.ID, p.OrganizationID, nil),
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		Reason:          p.VoidReason,
	}
}

// PaymentRefundedEvent is published when a card payment is refunded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	Gateway       GatewayType     `json:"gateway"`
	RefundID      string          `json:"refund_id"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypePayment, p.ID, p.OrganizationID, nil),
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		Gateway:         p.Gateway,
		RefundID:        p.RefundID,
	}
}

// PaymentSyncedEvent is published when the ERP accepted a payment
type PaymentSyncedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
	ERPReference  string `json:"erp_reference"`
	Attempts      int    `json:"attempts"`
}

// NewPaymentSyncedEvent creates a new PaymentSyncedEvent
func NewPaymentSyncedEvent(p *Payment) *PaymentSyncedEvent {
	return &PaymentSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSynced, AggregateTypePayment, p.ID, p.OrganizationID, nil),
		PaymentNumber:   p.PaymentNumber,
		ERPReference:    p.ERPReference,
		Attempts:        p.SyncAttempts,
	}
}

// PaymentSyncFailedEvent is published when a push to the ERP fails
type PaymentSyncFailedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
	Error         string `json:"error"`
	Attempts      int    `json:"attempts"`
}

// NewPaymentSyncFailedEvent creates a new PaymentSyncFailedEvent
func NewPaymentSyncFailedEvent(p *Payment) *PaymentSyncFailedEvent {
	return &PaymentSyncFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSyncFailed, AggregateTypePayment, p.ID, p.OrganizationID, nil),
		PaymentNumber:   p.PaymentNumber,
		Error:           p.SyncError,
		Attempts:        p.SyncAttempts,
	}
}
