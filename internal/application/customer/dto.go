package customer

import (
	"time"

	financeapp "github.com/arflow/backend/internal/application/finance"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AddressRequest is a billing address in create and update requests
type AddressRequest struct {
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"max=100"`
}

func (a AddressRequest) toDomain() customer.Address {
	return customer.Address(a)
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	CustomerNumber   string         `json:"customer_number" binding:"required,min=1,max=30"`
	CompanyName      string         `json:"company_name" binding:"required,min=1,max=200"`
	ContactName      string         `json:"contact_name" binding:"max=100"`
	Email            string         `json:"email" binding:"omitempty,email"`
	Phone            string         `json:"phone" binding:"max=50"`
	BillingAddress   AddressRequest `json:"billing_address"`
	PaymentTermsDays int            `json:"payment_terms_days" binding:"min=0,max=365"`
}

func (r CreateCustomerRequest) details() customer.Details {
	return customer.Details{
		CompanyName:      r.CompanyName,
		ContactName:      r.ContactName,
		Email:            r.Email,
		Phone:            r.Phone,
		BillingAddress:   r.BillingAddress.toDomain(),
		PaymentTermsDays: r.PaymentTermsDays,
	}
}

// UpdateCustomerRequest replaces the editable customer profile
type UpdateCustomerRequest struct {
	CompanyName      string         `json:"company_name" binding:"required,min=1,max=200"`
	ContactName      string         `json:"contact_name" binding:"max=100"`
	Email            string         `json:"email" binding:"omitempty,email"`
	Phone            string         `json:"phone" binding:"max=50"`
	BillingAddress   AddressRequest `json:"billing_address"`
	PaymentTermsDays int            `json:"payment_terms_days" binding:"min=0,max=365"`
	Version          int            `json:"version"`
}

func (r UpdateCustomerRequest) details() customer.Details {
	return customer.Details{
		CompanyName:      r.CompanyName,
		ContactName:      r.ContactName,
		Email:            r.Email,
		Phone:            r.Phone,
		BillingAddress:   r.BillingAddress.toDomain(),
		PaymentTermsDays: r.PaymentTermsDays,
	}
}

// ListCustomersRequest holds the customer list query
type ListCustomersRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Source   string `form:"source" binding:"omitempty,oneof=MANUAL ACUMATICA"`
}

func (r ListCustomersRequest) toFilter() customer.Filter {
	filter := customer.Filter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
			Search:   r.Search,
		},
	}
	if r.Status != "" {
		status := customer.Status(r.Status)
		filter.Status = &status
	}
	if r.Source != "" {
		source := customer.Source(r.Source)
		filter.Source = &source
	}
	filter.Normalize()
	return filter
}

// AddressResponse is a billing address
type AddressResponse struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID               uuid.UUID       `json:"id"`
	CustomerNumber   string          `json:"customer_number"`
	CompanyName      string          `json:"company_name"`
	ContactName      string          `json:"contact_name,omitempty"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	BillingAddress   AddressResponse `json:"billing_address"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	Status           string          `json:"status"`
	ERPReference     string          `json:"erp_reference,omitempty"`
	Source           string          `json:"source"`
	LastSyncedAt     *time.Time      `json:"last_synced_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToCustomerResponse converts a customer to a response
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:               c.ID,
		CustomerNumber:   c.CustomerNumber,
		CompanyName:      c.CompanyName,
		ContactName:      c.ContactName,
		Email:            c.Email,
		Phone:            c.Phone,
		BillingAddress:   AddressResponse(c.BillingAddress),
		PaymentTermsDays: c.PaymentTermsDays,
		Status:           string(c.Status),
		ERPReference:     c.ERPReference,
		Source:           string(c.Source),
		LastSyncedAt:     c.LastSyncedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		Version:          c.Version,
	}
}

// StatementResponse is a customer's open documents, recent payments and aging
type StatementResponse struct {
	Customer       CustomerResponse              `json:"customer"`
	AsOf           time.Time                     `json:"as_of"`
	OpenDocuments  []financeapp.DocumentResponse `json:"open_documents"`
	RecentPayments []financeapp.PaymentResponse  `json:"recent_payments"`
	Aging          financeapp.AgingResponse      `json:"aging"`
}
