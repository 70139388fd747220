package identity

import (
	"regexp"
	"strings"

	"github.com/arflow/backend/internal/domain/shared"
)

// OrganizationStatus represents the lifecycle state of an organization
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "ACTIVE"
	OrganizationStatusSuspended OrganizationStatus = "SUSPENDED"
)

// IsValid checks if the status is valid
func (s OrganizationStatus) IsValid() bool {
	return s == OrganizationStatusActive || s == OrganizationStatusSuspended
}

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Organization is the tenant. Every customer, document, payment and setting
// belongs to exactly one organization.
type Organization struct {
	shared.BaseAggregateRoot
	Name         string
	Slug         string
	Status       OrganizationStatus
	Currency     string
	Timezone     string
	ContactEmail string
}

// NewOrganization creates an active organization with USD as its currency
func NewOrganization(name, slug string) (*Organization, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := validateOrganizationName(name); err != nil {
		return nil, err
	}
	if !slugPattern.MatchString(slug) {
		return nil, shared.NewDomainError("INVALID_SLUG", "Slug must be 3-50 lowercase letters, digits or dashes")
	}

	return &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Status:            OrganizationStatusActive,
		Currency:          "USD",
		Timezone:          "UTC",
	}, nil
}

// Update changes the editable organization profile
func (o *Organization) Update(name, contactEmail, currency, timezone string) error {
	name = strings.TrimSpace(name)
	if err := validateOrganizationName(name); err != nil {
		return err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = o.Currency
	}
	if !currencyPattern.MatchString(currency) {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	contactEmail = strings.ToLower(strings.TrimSpace(contactEmail))
	if contactEmail != "" {
		if err := validateEmail(contactEmail); err != nil {
			return err
		}
	}
	if timezone == "" {
		timezone = o.Timezone
	}

	o.Name = name
	o.ContactEmail = contactEmail
	o.Currency = currency
	o.Timezone = timezone
	o.IncrementVersion()
	return nil
}

// Suspend blocks logins for the organization
func (o *Organization) Suspend() error {
	if o.Status == OrganizationStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", "Organization is already suspended")
	}
	o.Status = OrganizationStatusSuspended
	o.IncrementVersion()
	return nil
}

// Activate re-enables a suspended organization
func (o *Organization) Activate() error {
	if o.Status == OrganizationStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Organization is already active")
	}
	o.Status = OrganizationStatusActive
	o.IncrementVersion()
	return nil
}

// IsActive returns true if the organization is active
func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}

func validateOrganizationName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot exceed 200 characters")
	}
	return nil
}
