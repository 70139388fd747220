package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType represents the kind of AR document
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypeCreditMemo DocumentType = "CREDIT_MEMO"
	DocumentTypeDebitMemo  DocumentType = "DEBIT_MEMO"
)

// IsValid checks if the type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypeCreditMemo, DocumentTypeDebitMemo:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsReceivable returns true for documents the customer owes money on.
// Credit memos are owed to the customer and reduce the outstanding total.
func (t DocumentType) IsReceivable() bool {
	return t == DocumentTypeInvoice || t == DocumentTypeDebitMemo
}

// DocumentStatus represents the payment status of a document
type DocumentStatus string

const (
	DocumentStatusOpen    DocumentStatus = "OPEN"    // Nothing paid, balance = total
	DocumentStatusPartial DocumentStatus = "PARTIAL" // 0 < balance < total
	DocumentStatusPaid    DocumentStatus = "PAID"    // Balance = 0
	DocumentStatusVoid    DocumentStatus = "VOID"
)

// IsValid checks if the status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusOpen, DocumentStatusPartial, DocumentStatusPaid, DocumentStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// CanApplyPayment returns true if payments can be applied in this status
func (s DocumentStatus) CanApplyPayment() bool {
	return s == DocumentStatusOpen || s == DocumentStatusPartial
}

// DocumentSource tells where a document was first created
type DocumentSource string

const (
	DocumentSourceManual    DocumentSource = "MANUAL"
	DocumentSourceAcumatica DocumentSource = "ACUMATICA"
)

// Document is an invoice, credit memo or debit memo owed by a customer.
// BalanceDue always equals TotalAmount - AmountPaid and stays within [0, TotalAmount].
type Document struct {
	shared.OrgAggregateRoot
	DocumentNumber string
	CustomerID     uuid.UUID
	Type           DocumentType
	Status         DocumentStatus
	DocumentDate   time.Time
	DueDate        time.Time
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	BalanceDue     decimal.Decimal
	Currency       string
	Description    string
	ERPReference   string
	Source         DocumentSource
	LastSyncedAt   *time.Time
	VoidedAt       *time.Time
	VoidReason     string
}

// NewDocumentParams holds the fields for a new document
type NewDocumentParams struct {
	DocumentNumber string
	CustomerID     uuid.UUID
	Type           DocumentType
	DocumentDate   time.Time
	DueDate        time.Time
	TotalAmount    decimal.Decimal
	Currency       string
	Description    string
}

// NewDocument creates a manually entered document
func NewDocument(orgID uuid.UUID, p NewDocumentParams) (*Document, error) {
	d, err := newDocument(orgID, p)
	if err != nil {
		return nil, err
	}
	d.AddDomainEvent(NewDocumentCreatedEvent(d))
	return d, nil
}

func newDocument(orgID uuid.UUID, p NewDocumentParams) (*Document, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	number := strings.TrimSpace(p.DocumentNumber)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 50 characters")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type is not valid")
	}
	if !p.TotalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if p.DocumentDate.IsZero() {
		p.DocumentDate = time.Now()
	}
	if p.DueDate.IsZero() {
		p.DueDate = p.DocumentDate
	}
	if p.DueDate.Before(truncateDay(p.DocumentDate)) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the document date")
	}
	currency, err := normalizeCurrency(p.Currency)
	if err != nil {
		return nil, err
	}

	d := &Document{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		DocumentNumber:   number,
		CustomerID:       p.CustomerID,
		Type:             p.Type,
		Status:           DocumentStatusOpen,
		DocumentDate:     p.DocumentDate,
		DueDate:          p.DueDate,
		TotalAmount:      p.TotalAmount,
		AmountPaid:       decimal.Zero,
		BalanceDue:       p.TotalAmount,
		Currency:         currency,
		Description:      strings.TrimSpace(p.Description),
		Source:           DocumentSourceManual,
	}
	return d, nil
}

// NewDocumentFromERP creates a document imported from Acumatica with the
// balance the ERP reports.
func NewDocumentFromERP(orgID uuid.UUID, erpReference string, p NewDocumentParams, balance decimal.Decimal) (*Document, error) {
	erpReference = strings.TrimSpace(erpReference)
	if erpReference == "" {
		return nil, shared.NewDomainError("INVALID_ERP_REFERENCE", "ERP reference cannot be empty")
	}
	d, err := newDocument(orgID, p)
	if err != nil {
		return nil, err
	}
	d.ERPReference = erpReference
	d.Source = DocumentSourceAcumatica
	d.setBalance(balance)
	now := time.Now()
	d.LastSyncedAt = &now
	d.AddDomainEvent(NewDocumentCreatedEvent(d))
	return d, nil
}

// ApplyPayment reduces the balance by amount
func (d *Document) ApplyPayment(amount decimal.Decimal, paymentID uuid.UUID) error {
	if !d.Type.IsReceivable() {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Payments can only be applied to invoices and debit memos")
	}
	if !d.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to document in %s status", d.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	if amount.GreaterThan(d.BalanceDue) {
		return shared.NewDomainError("EXCEEDS_BALANCE", fmt.Sprintf("Applied amount %s exceeds balance due %s on %s", amount.StringFixed(2), d.BalanceDue.StringFixed(2), d.DocumentNumber))
	}

	d.AmountPaid = d.AmountPaid.Add(amount)
	d.BalanceDue = d.TotalAmount.Sub(d.AmountPaid)
	d.recalculateStatus()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentPaymentAppliedEvent(d, paymentID, amount))
	return nil
}

// ReversePayment restores amount to the balance, used when a payment is voided
func (d *Document) ReversePayment(amount decimal.Decimal, paymentID uuid.UUID) error {
	if d.Status == DocumentStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Cannot reverse payment on a void document")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversed amount must be positive")
	}
	if amount.GreaterThan(d.AmountPaid) {
		return shared.NewDomainError("EXCEEDS_PAID", fmt.Sprintf("Reversed amount %s exceeds amount paid %s on %s", amount.StringFixed(2), d.AmountPaid.StringFixed(2), d.DocumentNumber))
	}

	d.AmountPaid = d.AmountPaid.Sub(amount)
	d.BalanceDue = d.TotalAmount.Sub(d.AmountPaid)
	d.recalculateStatus()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentPaymentReversedEvent(d, paymentID, amount))
	return nil
}

// ERPDocumentState is the document state reported by Acumatica
type ERPDocumentState struct {
	TotalAmount  decimal.Decimal
	Balance      decimal.Decimal
	DocumentDate time.Time
	DueDate      time.Time
	Description  string
	Voided       bool
}

// SyncFromERP overwrites totals and balance with the ERP's figures. The ERP
// is the ledger of record; a balance outside [0, total] is clamped into range.
// Returns false when nothing changed.
func (d *Document) SyncFromERP(state ERPDocumentState) (bool, error) {
	if !state.TotalAmount.IsPositive() {
		return false, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	now := time.Now()
	d.LastSyncedAt = &now

	if state.Voided {
		if d.Status == DocumentStatusVoid {
			return false, nil
		}
		d.Status = DocumentStatusVoid
		d.VoidedAt = &now
		d.VoidReason = "Voided in ERP"
		d.IncrementVersion()
		d.AddDomainEvent(NewDocumentVoidedEvent(d))
		return true, nil
	}

	changed := !d.TotalAmount.Equal(state.TotalAmount) ||
		!d.BalanceDue.Equal(clampBalance(state.Balance, state.TotalAmount)) ||
		(!state.DueDate.IsZero() && !d.DueDate.Equal(state.DueDate)) ||
		(state.Description != "" && d.Description != state.Description)
	if !changed {
		return false, nil
	}

	d.TotalAmount = state.TotalAmount
	d.setBalance(state.Balance)
	if !state.DocumentDate.IsZero() {
		d.DocumentDate = state.DocumentDate
	}
	if !state.DueDate.IsZero() {
		d.DueDate = state.DueDate
	}
	if state.Description != "" {
		d.Description = state.Description
	}
	d.IncrementVersion()
	return true, nil
}

// Void cancels the document. hasActiveApplications must be false.
func (d *Document) Void(reason string, hasActiveApplications bool) error {
	if d.Status == DocumentStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Document is already void")
	}
	if hasActiveApplications || d.AmountPaid.IsPositive() {
		return shared.NewDomainError("DOCUMENT_HAS_PAYMENTS", "Cannot void a document with applied payments; void the payments first")
	}
	now := time.Now()
	d.Status = DocumentStatusVoid
	d.VoidedAt = &now
	d.VoidReason = strings.TrimSpace(reason)
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentVoidedEvent(d))
	return nil
}

// IsOverdue returns true if the document has a balance past its due date
func (d *Document) IsOverdue(asOf time.Time) bool {
	if !d.Status.CanApplyPayment() || !d.BalanceDue.IsPositive() {
		return false
	}
	return truncateDay(asOf).After(truncateDay(d.DueDate))
}

// DaysPastDue returns the number of whole days past due (0 if not overdue)
func (d *Document) DaysPastDue(asOf time.Time) int {
	if !d.IsOverdue(asOf) {
		return 0
	}
	return int(truncateDay(asOf).Sub(truncateDay(d.DueDate)).Hours() / 24)
}

// SignedBalance returns the balance as it counts toward the customer's
// outstanding total: negative for credit memos, zero for void documents.
func (d *Document) SignedBalance() decimal.Decimal {
	if d.Status == DocumentStatusVoid {
		return decimal.Zero
	}
	if d.Type == DocumentTypeCreditMemo {
		return d.BalanceDue.Neg()
	}
	return d.BalanceDue
}

func (d *Document) setBalance(balance decimal.Decimal) {
	balance = clampBalance(balance, d.TotalAmount)
	d.BalanceDue = balance
	d.AmountPaid = d.TotalAmount.Sub(balance)
	d.recalculateStatus()
}

func (d *Document) recalculateStatus() {
	if d.Status == DocumentStatusVoid {
		return
	}
	switch {
	case d.BalanceDue.IsZero():
		d.Status = DocumentStatusPaid
	case d.BalanceDue.Equal(d.TotalAmount):
		d.Status = DocumentStatusOpen
	default:
		d.Status = DocumentStatusPartial
	}
}

func clampBalance(balance, total decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	if balance.GreaterThan(total) {
		return total
	}
	return balance
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
