package customer

import "github.com/arflow/backend/internal/domain/shared"

// AggregateTypeCustomer is the aggregate type for customers
const AggregateTypeCustomer = "Customer"

// Customer event types
const (
	EventTypeCustomerCreated       = "customer.created"
	EventTypeCustomerUpdated       = "customer.updated"
	EventTypeCustomerStatusChanged = "customer.status_changed"
	EventTypeCustomerDeleted       = "customer.deleted"
)

// CustomerCreatedEvent is published when a customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerNumber string `json:"customer_number"`
	CompanyName    string `json:"company_name"`
	Source         Source `json:"source"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, c.ID, c.OrganizationID, c.CreatedBy),
		CustomerNumber:  c.CustomerNumber,
		CompanyName:     c.CompanyName,
		Source:          c.Source,
	}
}

// CustomerUpdatedEvent is published when a customer profile changes
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerNumber string `json:"customer_number"`
	CompanyName    string `json:"company_name"`
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(c *Customer) *CustomerUpdatedEvent {
	return &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerUpdated, AggregateTypeCustomer, c.ID, c.OrganizationID, nil),
		CustomerNumber:  c.CustomerNumber,
		CompanyName:     c.CompanyName,
	}
}

// CustomerStatusChangedEvent is published on activate/deactivate
type CustomerStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerNumber string `json:"customer_number"`
	Status         Status `json:"status"`
}

// NewCustomerStatusChangedEvent creates a new CustomerStatusChangedEvent
func NewCustomerStatusChangedEvent(c *Customer) *CustomerStatusChangedEvent {
	return &CustomerStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerStatusChanged, AggregateTypeCustomer, c.ID, c.OrganizationID, nil),
		CustomerNumber:  c.CustomerNumber,
		Status:          c.Status,
	}
}

// CustomerDeletedEvent is published after a customer without documents is deleted
type CustomerDeletedEvent struct {
	shared.BaseDomainEvent
	CustomerNumber string `json:"customer_number"`
}

// NewCustomerDeletedEvent creates a new CustomerDeletedEvent
func NewCustomerDeletedEvent(c *Customer) *CustomerDeletedEvent {
	return &CustomerDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeleted, AggregateTypeCustomer, c.ID, c.OrganizationID, nil),
		CustomerNumber:  c.CustomerNumber,
	}
}
