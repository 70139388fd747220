package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ERP errors
// ---------------------------------------------------------------------------

var (
	ErrERPNotConfigured   = errors.New("erp: integration not configured")
	ErrERPAuthFailed      = errors.New("erp: authentication failed")
	ErrERPUnavailable     = errors.New("erp: service temporarily unavailable")
	ErrERPRequestFailed   = errors.New("erp: request failed")
	ErrERPInvalidResponse = errors.New("erp: invalid response")
)

// ERPError carries the HTTP status and message returned by the ERP
type ERPError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ERPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (HTTP %d)", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v (HTTP %d): %s", e.Err, e.StatusCode, e.Message)
}

// Unwrap returns the sentinel error
func (e *ERPError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// ERP records
// ---------------------------------------------------------------------------

// ERPCustomer is a customer as the ERP reports it
type ERPCustomer struct {
	CustomerID       string
	Name             string
	ContactName      string
	Email            string
	Phone            string
	AddressLine1     string
	AddressLine2     string
	City             string
	State            string
	PostalCode       string
	Country          string
	PaymentTermsDays int
	Active           bool
	LastModified     time.Time
}

// ERPDocument is an invoice or memo as the ERP reports it
type ERPDocument struct {
	Type         finance.DocumentType
	ReferenceNbr string
	CustomerID   string
	Date         time.Time
	DueDate      time.Time
	Amount       decimal.Decimal
	Balance      decimal.Decimal
	Currency     string
	Description  string
	Status       string
	Voided       bool
	LastModified time.Time
}

// ERPPaymentApplication applies part of a pushed payment to an ERP document
type ERPPaymentApplication struct {
	DocType      finance.DocumentType
	ReferenceNbr string
	AmountPaid   decimal.Decimal
}

// ERPPayment is a payment pushed to the ERP
type ERPPayment struct {
	CustomerID      string
	PaymentMethod   string
	CashAccount     string
	Branch          string
	Amount          decimal.Decimal
	Currency        string
	ApplicationDate time.Time
	PaymentRef      string
	Description     string
	Documents       []ERPPaymentApplication
}

// ERPPaymentResult identifies the payment the ERP created
type ERPPaymentResult struct {
	ReferenceNbr string
	Status       string
}

// ERPClient is the port to the ERP. A sync run logs in once, makes its
// calls and logs out.
type ERPClient interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ListCustomers(ctx context.Context, modifiedSince *time.Time) ([]ERPCustomer, error)
	ListDocuments(ctx context.Context, modifiedSince *time.Time) ([]ERPDocument, error)
	CreatePayment(ctx context.Context, payment *ERPPayment) (*ERPPaymentResult, error)
}
