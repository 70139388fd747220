package customer

import (
	"regexp"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the status of a customer
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Source tells where a record was first created
type Source string

const (
	SourceManual    Source = "MANUAL"
	SourceAcumatica Source = "ACUMATICA"
)

// IsValid checks if the source is valid
func (s Source) IsValid() bool {
	return s == SourceManual || s == SourceAcumatica
}

const (
	DefaultPaymentTermsDays = 30
	maxPaymentTermsDays     = 365
)

var (
	customerNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-.]{0,29}$`)
	emailPattern          = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Address is a postal billing address
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Customer is a party that owes the organization money
type Customer struct {
	shared.OrgAggregateRoot
	CustomerNumber   string
	CompanyName      string
	ContactName      string
	Email            string
	Phone            string
	BillingAddress   Address
	PaymentTermsDays int
	Status           Status
	ERPReference     string // Acumatica CustomerID
	Source           Source
	LastSyncedAt     *time.Time
}

// Details holds the editable customer profile
type Details struct {
	CompanyName      string
	ContactName      string
	Email            string
	Phone            string
	BillingAddress   Address
	PaymentTermsDays int
}

// NewCustomer creates a manually entered active customer
func NewCustomer(orgID uuid.UUID, customerNumber string, details Details) (*Customer, error) {
	c, err := newCustomer(orgID, customerNumber, details)
	if err != nil {
		return nil, err
	}
	c.AddDomainEvent(NewCustomerCreatedEvent(c))
	return c, nil
}

func newCustomer(orgID uuid.UUID, customerNumber string, details Details) (*Customer, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	customerNumber = strings.ToUpper(strings.TrimSpace(customerNumber))
	if err := validateCustomerNumber(customerNumber); err != nil {
		return nil, err
	}

	c := &Customer{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		CustomerNumber:   customerNumber,
		Status:           StatusActive,
		Source:           SourceManual,
	}
	if err := c.applyDetails(details); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCustomerFromERP creates a customer imported from Acumatica
func NewCustomerFromERP(orgID uuid.UUID, erpReference string, details Details, active bool) (*Customer, error) {
	erpReference = strings.TrimSpace(erpReference)
	if erpReference == "" {
		return nil, shared.NewDomainError("INVALID_ERP_REFERENCE", "ERP reference cannot be empty")
	}
	c, err := newCustomer(orgID, erpReference, details)
	if err != nil {
		return nil, err
	}
	c.ERPReference = erpReference
	c.Source = SourceAcumatica
	if !active {
		c.Status = StatusInactive
	}
	now := time.Now()
	c.LastSyncedAt = &now
	c.AddDomainEvent(NewCustomerCreatedEvent(c))
	return c, nil
}

// Update changes the customer profile
func (c *Customer) Update(details Details) error {
	if err := c.applyDetails(details); err != nil {
		return err
	}
	c.IncrementVersion()
	c.AddDomainEvent(NewCustomerUpdatedEvent(c))
	return nil
}

// SyncFromERP refreshes an existing customer from Acumatica data.
// Returns false when nothing changed.
func (c *Customer) SyncFromERP(erpReference string, details Details, active bool) (bool, error) {
	before := *c
	if err := c.applyDetails(details); err != nil {
		return false, err
	}
	c.ERPReference = strings.TrimSpace(erpReference)
	if active {
		c.Status = StatusActive
	} else {
		c.Status = StatusInactive
	}
	now := time.Now()
	c.LastSyncedAt = &now

	changed := before.CompanyName != c.CompanyName ||
		before.ContactName != c.ContactName ||
		before.Email != c.Email ||
		before.Phone != c.Phone ||
		before.BillingAddress != c.BillingAddress ||
		before.PaymentTermsDays != c.PaymentTermsDays ||
		before.Status != c.Status ||
		before.ERPReference != c.ERPReference
	c.IncrementVersion()
	return changed, nil
}

// Activate makes the customer available for new documents and payments
func (c *Customer) Activate() error {
	if c.Status == StatusActive {
		return shared.NewDomainError("INVALID_STATE", "Customer is already active")
	}
	c.Status = StatusActive
	c.IncrementVersion()
	c.AddDomainEvent(NewCustomerStatusChangedEvent(c))
	return nil
}

// Deactivate hides the customer from new activity
func (c *Customer) Deactivate() error {
	if c.Status == StatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Customer is already inactive")
	}
	c.Status = StatusInactive
	c.IncrementVersion()
	c.AddDomainEvent(NewCustomerStatusChangedEvent(c))
	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == StatusActive
}

// IsLinkedToERP returns true if the customer exists in Acumatica
func (c *Customer) IsLinkedToERP() bool {
	return c.ERPReference != ""
}

// DueDateFor returns the due date for a document dated documentDate
func (c *Customer) DueDateFor(documentDate time.Time) time.Time {
	return documentDate.AddDate(0, 0, c.PaymentTermsDays)
}

func (c *Customer) applyDetails(d Details) error {
	company := strings.TrimSpace(d.CompanyName)
	if company == "" {
		return shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot be empty")
	}
	if len(company) > 200 {
		return shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot exceed 200 characters")
	}
	email := strings.ToLower(strings.TrimSpace(d.Email))
	if email != "" && !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	phone := strings.TrimSpace(d.Phone)
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	terms := d.PaymentTermsDays
	if terms == 0 {
		terms = DefaultPaymentTermsDays
	}
	if terms < 0 || terms > maxPaymentTermsDays {
		return shared.NewDomainError("INVALID_PAYMENT_TERMS", "Payment terms must be between 0 and 365 days")
	}

	c.CompanyName = company
	c.ContactName = strings.TrimSpace(d.ContactName)
	c.Email = email
	c.Phone = phone
	c.BillingAddress = d.BillingAddress
	c.PaymentTermsDays = terms
	return nil
}

func validateCustomerNumber(number string) error {
	if number == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NUMBER", "Customer number cannot be empty")
	}
	if !customerNumberPattern.MatchString(number) {
		return shared.NewDomainError("INVALID_CUSTOMER_NUMBER", "Customer number must be up to 30 letters, digits, dots, dashes or underscores")
	}
	return nil
}
