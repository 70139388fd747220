package finance

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how the customer paid
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodACH        PaymentMethod = "ACH"
	PaymentMethodCheck      PaymentMethod = "CHECK"
	PaymentMethodWire       PaymentMethod = "WIRE"
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

// IsValid checks if the method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodACH, PaymentMethodCheck,
		PaymentMethodWire, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusVoid      PaymentStatus = "VOID"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusVoid, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusVoid || s == PaymentStatusRefunded
}

// SyncStatus is the state of a payment's push to the ERP
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "NOT_SYNCED"
	SyncStatusPending   SyncStatus = "PENDING"
	SyncStatusSynced    SyncStatus = "SYNCED"
	SyncStatusFailed    SyncStatus = "FAILED"
)

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusNotSynced, SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// PaymentApplication records part of a payment applied against one document
type PaymentApplication struct {
	ID         uuid.UUID
	PaymentID  uuid.UUID
	DocumentID uuid.UUID
	Amount     decimal.Decimal
	AppliedAt  time.Time
	ReversedAt *time.Time
}

// IsActive returns true if the application has not been reversed
func (a *PaymentApplication) IsActive() bool {
	return a.ReversedAt == nil
}

// Payment is money received from a customer, optionally captured through a
// card gateway, and applied to one or more documents.
type Payment struct {
	shared.OrgAggregateRoot
	PaymentNumber        string
	CustomerID           uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	PaymentDate          time.Time
	Method               PaymentMethod
	Status               PaymentStatus
	Gateway              GatewayType
	GatewayTransactionID string
	CardBrand            string
	CardLast4            string
	ReferenceNumber      string
	Notes                string
	FailureReason        string
	RefundID             string
	VoidedAt             *time.Time
	VoidReason           string
	SyncStatus           SyncStatus
	ERPReference         string
	SyncError            string
	SyncedAt             *time.Time
	SyncAttempts         int
	Applications         []PaymentApplication
}

// NewPaymentParams holds the fields for a new payment
type NewPaymentParams struct {
	PaymentNumber   string
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	PaymentDate     time.Time
	Method          PaymentMethod
	ReferenceNumber string
	Notes           string
}

// GeneratePaymentNumber returns a PMT-YYYYMMDD-XXXXXX number
func GeneratePaymentNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PMT-%s-%s", at.Format("20060102"), suffix)
}

// NewManualPayment records a payment received outside any gateway. It is
// COMPLETED immediately.
func NewManualPayment(orgID uuid.UUID, p NewPaymentParams) (*Payment, error) {
	if p.Method == PaymentMethodCreditCard {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Card payments must be processed through a gateway")
	}
	payment, err := newPayment(orgID, p)
	if err != nil {
		return nil, err
	}
	payment.Status = PaymentStatusCompleted
	payment.Gateway = GatewayTypeNone
	payment.AddDomainEvent(NewPaymentCreatedEvent(payment))
	return payment, nil
}

// NewCardPayment creates a PENDING card payment to be charged through gateway
func NewCardPayment(orgID uuid.UUID, p NewPaymentParams, gateway GatewayType) (*Payment, error) {
	if gateway == GatewayTypeNone || !gateway.IsValid() {
		return nil, shared.NewDomainError("INVALID_GATEWAY", "A card payment needs a payment gateway")
	}
	p.Method = PaymentMethodCreditCard
	payment, err := newPayment(orgID, p)
	if err != nil {
		return nil, err
	}
	payment.Status = PaymentStatusPending
	payment.Gateway = gateway
	return payment, nil
}

func newPayment(orgID uuid.UUID, p NewPaymentParams) (*Payment, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !p.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	currency, err := normalizeCurrency(p.Currency)
	if err != nil {
		return nil, err
	}
	if places := CurrencyDecimals(currency); !p.Amount.Equal(p.Amount.Round(places)) {
		return nil, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("%s amounts cannot have more than %d decimal places", currency, places))
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}
	if p.PaymentNumber == "" {
		p.PaymentNumber = GeneratePaymentNumber(p.PaymentDate)
	}
	if len(p.ReferenceNumber) > 100 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference number cannot exceed 100 characters")
	}

	return &Payment{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		PaymentNumber:    p.PaymentNumber,
		CustomerID:       p.CustomerID,
		Amount:           p.Amount,
		Currency:         currency,
		PaymentDate:      p.PaymentDate,
		Method:           p.Method,
		ReferenceNumber:  strings.TrimSpace(p.ReferenceNumber),
		Notes:            strings.TrimSpace(p.Notes),
		SyncStatus:       SyncStatusNotSynced,
		Applications:     make([]PaymentApplication, 0),
	}, nil
}

// MarkCompleted records a successful gateway charge
func (p *Payment) MarkCompleted(transactionID, cardBrand, cardLast4 string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", p.Status))
	}
	p.Status = PaymentStatusCompleted
	p.GatewayTransactionID = transactionID
	p.CardBrand = cardBrand
	p.CardLast4 = cardLast4
	p.FailureReason = ""
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentCreatedEvent(p))
	return nil
}

// MarkFailed records a declined or errored gateway charge
func (p *Payment) MarkFailed(transactionID, reason string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}
	p.Status = PaymentStatusFailed
	p.GatewayTransactionID = transactionID
	p.FailureReason = reason
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentFailedEvent(p))
	return nil
}

// ApplyToDocument records an application of amount against documentID.
// The sum of active applications never exceeds the payment amount.
func (p *Payment) ApplyToDocument(documentID uuid.UUID, amount decimal.Decimal) (*PaymentApplication, error) {
	if p.Status != PaymentStatusCompleted && p.Status != PaymentStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment in %s status", p.Status))
	}
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	if amount.GreaterThan(p.UnappliedAmount()) {
		return nil, shared.NewDomainError("EXCEEDS_PAYMENT", fmt.Sprintf("Applied amount %s exceeds unapplied amount %s", amount.StringFixed(2), p.UnappliedAmount().StringFixed(2)))
	}

	app := PaymentApplication{
		ID:         uuid.New(),
		PaymentID:  p.ID,
		DocumentID: documentID,
		Amount:     amount,
		AppliedAt:  time.Now(),
	}
	p.Applications = append(p.Applications, app)
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentAppliedEvent(p, documentID, amount))
	return &p.Applications[len(p.Applications)-1], nil
}

// AppliedAmount returns the sum of active applications
func (p *Payment) AppliedAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Applications {
		if p.Applications[i].IsActive() {
			total = total.Add(p.Applications[i].Amount)
		}
	}
	return total
}

// UnappliedAmount returns the part of the payment not applied to documents
func (p *Payment) UnappliedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AppliedAmount())
}

// ActiveApplications returns applications that have not been reversed
func (p *Payment) ActiveApplications() []PaymentApplication {
	active := make([]PaymentApplication, 0, len(p.Applications))
	for _, app := range p.Applications {
		if app.IsActive() {
			active = append(active, app)
		}
	}
	return active
}

// Void cancels a completed payment and reverses its applications. It returns
// the applications whose amounts must be restored on their documents.
func (p *Payment) Void(reason string) ([]PaymentApplication, error) {
	if p.Status != PaymentStatusCompleted {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void payment in %s status", p.Status))
	}
	reversed := p.reverseApplications()
	now := time.Now()
	p.Status = PaymentStatusVoid
	p.VoidedAt = &now
	p.VoidReason = strings.TrimSpace(reason)
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentVoidedEvent(p))
	return reversed, nil
}

// MarkRefunded cancels a completed card payment after the gateway refunded it
func (p *Payment) MarkRefunded(refundID, reason string) ([]PaymentApplication, error) {
	if p.Status != PaymentStatusCompleted {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}
	if p.Gateway == GatewayTypeNone {
		return nil, shared.NewDomainError("INVALID_STATE", "Only gateway payments can be refunded")
	}
	reversed := p.reverseApplications()
	now := time.Now()
	p.Status = PaymentStatusRefunded
	p.RefundID = refundID
	p.VoidedAt = &now
	p.VoidReason = strings.TrimSpace(reason)
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRefundedEvent(p))
	return reversed, nil
}

func (p *Payment) reverseApplications() []PaymentApplication {
	now := time.Now()
	reversed := make([]PaymentApplication, 0, len(p.Applications))
	for i := range p.Applications {
		if p.Applications[i].IsActive() {
			p.Applications[i].ReversedAt = &now
			reversed = append(reversed, p.Applications[i])
		}
	}
	return reversed
}

// IsGatewayPayment returns true if the payment was captured by a gateway
func (p *Payment) IsGatewayPayment() bool {
	return p.Gateway != GatewayTypeNone && p.Gateway != ""
}

// CanSyncToERP returns an error when the payment may not be pushed
func (p *Payment) CanSyncToERP() error {
	if p.Status != PaymentStatusCompleted {
		return shared.NewDomainError("PAYMENT_NOT_COMPLETED", fmt.Sprintf("Only completed payments can be synced; payment is %s", p.Status))
	}
	if p.SyncStatus == SyncStatusSynced {
		return shared.NewDomainError("ALREADY_SYNCED", "Payment is already synced")
	}
	return nil
}

// IsSynced returns true when the ERP already holds this payment
func (p *Payment) IsSynced() bool {
	return p.SyncStatus == SyncStatusSynced && p.ERPReference != ""
}

// MarkSyncPending marks a push as in flight and counts the attempt
func (p *Payment) MarkSyncPending() error {
	if err := p.CanSyncToERP(); err != nil {
		return err
	}
	p.SyncStatus = SyncStatusPending
	p.SyncAttempts++
	p.SyncError = ""
	p.IncrementVersion()
	return nil
}

// MarkSynced records the ERP reference number of a successful push
func (p *Payment) MarkSynced(erpReference string) error {
	if strings.TrimSpace(erpReference) == "" {
		return shared.NewDomainError("INVALID_ERP_REFERENCE", "ERP reference cannot be empty")
	}
	now := time.Now()
	p.SyncStatus = SyncStatusSynced
	p.ERPReference = erpReference
	p.SyncError = ""
	p.SyncedAt = &now
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentSyncedEvent(p))
	return nil
}

// MarkSyncFailed records the error of a failed push
func (p *Payment) MarkSyncFailed(syncErr string) {
	syncErr = truncateRunes(syncErr, maxSyncErrorLength)
	p.SyncStatus = SyncStatusFailed
	p.SyncError = syncErr
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentSyncFailedEvent(p))
}

const maxSyncErrorLength = 1000

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
