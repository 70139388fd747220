package finance

import (
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// CreateDocumentRequest is the body of POST /documents
type CreateDocumentRequest struct {
	DocumentNumber string          `json:"document_number" binding:"required,max=50"`
	CustomerID     uuid.UUID       `json:"customer_id" binding:"required"`
	Type           string          `json:"type" binding:"required,oneof=INVOICE CREDIT_MEMO DEBIT_MEMO"`
	DocumentDate   *time.Time      `json:"document_date"`
	DueDate        *time.Time      `json:"due_date"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"required"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	Description    string          `json:"description" binding:"max=500"`
}

// VoidRequest is the body of the void endpoints
type VoidRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListDocumentsRequest holds the query parameters of GET /documents
type ListDocumentsRequest struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir"`
	Search     string     `form:"search"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=OPEN PARTIAL PAID VOID"`
	Type       string     `form:"type" binding:"omitempty,oneof=INVOICE CREDIT_MEMO DEBIT_MEMO"`
	Source     string     `form:"source" binding:"omitempty,oneof=MANUAL ACUMATICA"`
	Overdue    bool       `form:"overdue"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

func (r ListDocumentsRequest) toFilter(now time.Time) finance.DocumentFilter {
	filter := finance.DocumentFilter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
			Search:   r.Search,
		},
		CustomerID: r.CustomerID,
		FromDate:   r.FromDate,
		ToDate:     r.ToDate,
	}
	if r.Status != "" {
		status := finance.DocumentStatus(r.Status)
		filter.Status = &status
	}
	if r.Type != "" {
		docType := finance.DocumentType(r.Type)
		filter.Type = &docType
	}
	if r.Source != "" {
		source := finance.DocumentSource(r.Source)
		filter.Source = &source
	}
	if r.Overdue {
		filter.OverdueAsOf = &now
	}
	filter.Normalize()
	return filter
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID             uuid.UUID       `json:"id"`
	DocumentNumber string          `json:"document_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	DocumentDate   time.Time       `json:"document_date"`
	DueDate        time.Time       `json:"due_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description,omitempty"`
	ERPReference   string          `json:"erp_reference,omitempty"`
	Source         string          `json:"source"`
	Overdue        bool            `json:"overdue"`
	DaysPastDue    int             `json:"days_past_due"`
	LastSyncedAt   *time.Time      `json:"last_synced_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToDocumentResponse converts a domain document to a response, aged as of now
func ToDocumentResponse(d *finance.Document, now time.Time) DocumentResponse {
	return DocumentResponse{
		ID:             d.ID,
		DocumentNumber: d.DocumentNumber,
		CustomerID:     d.CustomerID,
		Type:           string(d.Type),
		Status:         string(d.Status),
		DocumentDate:   d.DocumentDate,
		DueDate:        d.DueDate,
		TotalAmount:    d.TotalAmount,
		AmountPaid:     d.AmountPaid,
		BalanceDue:     d.BalanceDue,
		Currency:       d.Currency,
		Description:    d.Description,
		ERPReference:   d.ERPReference,
		Source:         string(d.Source),
		Overdue:        d.IsOverdue(now),
		DaysPastDue:    d.DaysPastDue(now),
		LastSyncedAt:   d.LastSyncedAt,
		VoidedAt:       d.VoidedAt,
		VoidReason:     d.VoidReason,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// ApplicationRequest applies part of a payment to one document
type ApplicationRequest struct {
	DocumentID uuid.UUID       `json:"document_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// CreateManualPaymentRequest is the body of POST /payments/manual
type CreateManualPaymentRequest struct {
	CustomerID      uuid.UUID            `json:"customer_id" binding:"required"`
	Amount          decimal.Decimal      `json:"amount" binding:"required"`
	Currency        string               `json:"currency" binding:"omitempty,len=3"`
	PaymentDate     *time.Time           `json:"payment_date"`
	Method          string               `json:"method" binding:"required,oneof=ACH CHECK WIRE CASH OTHER"`
	ReferenceNumber string               `json:"reference_number" binding:"max=100"`
	Notes           string               `json:"notes" binding:"max=1000"`
	Applications    []ApplicationRequest `json:"applications" binding:"omitempty,dive"`
	IdempotencyKey  string               `json:"-"`
}

// ProcessCardPaymentRequest is the body of POST /payments/card
type ProcessCardPaymentRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Currency   string          `json:"currency" binding:"omitempty,len=3"`
	// Gateway selects STRIPE or AUTHORIZE_NET; empty uses the default gateway
	Gateway           string               `json:"gateway" binding:"omitempty,oneof=STRIPE AUTHORIZE_NET"`
	PaymentToken      string               `json:"payment_token" binding:"required"`
	PaymentDescriptor string               `json:"payment_descriptor"`
	Notes             string               `json:"notes" binding:"max=1000"`
	Applications      []ApplicationRequest `json:"applications" binding:"omitempty,dive"`
	IdempotencyKey    string               `json:"-"`
}

// ApplyPaymentRequest is the body of POST /payments/:id/apply
type ApplyPaymentRequest struct {
	Applications []ApplicationRequest `json:"applications" binding:"required,min=1,dive"`
}

// ListPaymentsRequest holds the query parameters of GET /payments
type ListPaymentsRequest struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir"`
	Search     string     `form:"search"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED VOID REFUNDED"`
	Method     string     `form:"method" binding:"omitempty,oneof=CREDIT_CARD ACH CHECK WIRE CASH OTHER"`
	SyncStatus string     `form:"sync_status" binding:"omitempty,oneof=NOT_SYNCED PENDING SYNCED FAILED"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

func (r ListPaymentsRequest) toFilter() finance.PaymentFilter {
	filter := finance.PaymentFilter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
			Search:   r.Search,
		},
		CustomerID: r.CustomerID,
		FromDate:   r.FromDate,
		ToDate:     r.ToDate,
	}
	if r.Status != "" {
		status := finance.PaymentStatus(r.Status)
		filter.Status = &status
	}
	if r.Method != "" {
		method := finance.PaymentMethod(r.Method)
		filter.Method = &method
	}
	if r.SyncStatus != "" {
		syncStatus := finance.SyncStatus(r.SyncStatus)
		filter.SyncStatus = &syncStatus
	}
	filter.Normalize()
	return filter
}

// ApplicationResponse represents a payment application
type ApplicationResponse struct {
	ID         uuid.UUID       `json:"id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
	AppliedAt  time.Time       `json:"applied_at"`
	ReversedAt *time.Time      `json:"reversed_at,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                   uuid.UUID             `json:"id"`
	PaymentNumber        string                `json:"payment_number"`
	CustomerID           uuid.UUID             `json:"customer_id"`
	Amount               decimal.Decimal       `json:"amount"`
	AppliedAmount        decimal.Decimal       `json:"applied_amount"`
	UnappliedAmount      decimal.Decimal       `json:"unapplied_amount"`
	Currency             string                `json:"currency"`
	PaymentDate          time.Time             `json:"payment_date"`
	Method               string                `json:"method"`
	Status               string                `json:"status"`
	Gateway              string                `json:"gateway"`
	GatewayTransactionID string                `json:"gateway_transaction_id,omitempty"`
	CardBrand            string                `json:"card_brand,omitempty"`
	CardLast4            string                `json:"card_last4,omitempty"`
	ReferenceNumber      string                `json:"reference_number,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	FailureReason        string                `json:"failure_reason,omitempty"`
	RefundID             string                `json:"refund_id,omitempty"`
	VoidedAt             *time.Time            `json:"voided_at,omitempty"`
	VoidReason           string                `json:"void_reason,omitempty"`
	SyncStatus           string                `json:"sync_status"`
	ERPReference         string                `json:"erp_reference,omitempty"`
	SyncError            string                `json:"sync_error,omitempty"`
	SyncedAt             *time.Time            `json:"synced_at,omitempty"`
	SyncAttempts         int                   `json:"sync_attempts"`
	Applications         []ApplicationResponse `json:"applications"`
	Version              int                   `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	apps := make([]ApplicationResponse, len(p.Applications))
	for i, a := range p.Applications {
		apps[i] = ApplicationResponse{
			ID:         a.ID,
			DocumentID: a.DocumentID,
			Amount:     a.Amount,
			AppliedAt:  a.AppliedAt,
			ReversedAt: a.ReversedAt,
		}
	}
	return PaymentResponse{
		ID:                   p.ID,
		PaymentNumber:        p.PaymentNumber,
		CustomerID:           p.CustomerID,
		Amount:               p.Amount,
		AppliedAmount:        p.AppliedAmount(),
		UnappliedAmount:      p.UnappliedAmount(),
		Currency:             p.Currency,
		PaymentDate:          p.PaymentDate,
		Method:               string(p.Method),
		Status:               string(p.Status),
		Gateway:              string(p.Gateway),
		GatewayTransactionID: p.GatewayTransactionID,
		CardBrand:            p.CardBrand,
		CardLast4:            p.CardLast4,
		ReferenceNumber:      p.ReferenceNumber,
		Notes:                p.Notes,
		FailureReason:        p.FailureReason,
		RefundID:             p.RefundID,
		VoidedAt:             p.VoidedAt,
		VoidReason:           p.VoidReason,
		SyncStatus:           string(p.SyncStatus),
		ERPReference:         p.ERPReference,
		SyncError:            p.SyncError,
		SyncedAt:             p.SyncedAt,
		SyncAttempts:         p.SyncAttempts,
		Applications:         apps,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// AgingResponse is an aging report
type AgingResponse struct {
	CustomerID    *uuid.UUID                 `json:"customer_id,omitempty"`
	AsOf          time.Time                  `json:"as_of"`
	Buckets       map[string]decimal.Decimal `json:"buckets"`
	Credits       decimal.Decimal            `json:"credits"`
	Total         decimal.Decimal            `json:"total"`
	Overdue       decimal.Decimal            `json:"overdue"`
	DocumentCount int                        `json:"document_count"`
}

// ToAgingResponse converts an aging report to a response
func ToAgingResponse(r *finance.AgingReport) AgingResponse {
	buckets := make(map[string]decimal.Decimal, len(r.Buckets))
	for k, v := range r.Buckets {
		buckets[string(k)] = v
	}
	return AgingResponse{
		CustomerID:    r.CustomerID,
		AsOf:          r.AsOf,
		Buckets:       buckets,
		Credits:       r.Credits,
		Total:         r.Total,
		Overdue:       r.Overdue,
		DocumentCount: r.DocumentCount,
	}
}

// SummaryResponse is the dashboard summary of an organization
type SummaryResponse struct {
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	OverdueAmount      decimal.Decimal `json:"overdue_amount"`
	OpenDocumentCount  int             `json:"open_document_count"`
	PaymentsReceived   decimal.Decimal `json:"payments_received_30d"`
	PaymentCount       int64           `json:"payment_count_30d"`
	Aging              AgingResponse   `json:"aging"`
	FailedSyncCount    int64           `json:"failed_sync_count"`
	FailedPaymentSyncs int64           `json:"failed_payment_syncs"`
}
