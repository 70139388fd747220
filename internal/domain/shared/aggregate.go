package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	LoadedVersion() int
	MarkLoaded()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot adds an optimistic-lock version and pending events to BaseEntity
type BaseAggregateRoot struct {
	BaseEntity
	Version       int
	loadedVersion int
	domainEvents  []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version and touches UpdatedAt
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// LoadedVersion returns the version last read from or written to storage.
// Zero means the aggregate has never been persisted. Repositories save with
// WHERE version = LoadedVersion(), so several changes between load and save
// still count as one write.
func (a *BaseAggregateRoot) LoadedVersion() int {
	return a.loadedVersion
}

// MarkLoaded records the current version as the stored one
func (a *BaseAggregateRoot) MarkLoaded() {
	a.loadedVersion = a.Version
}

// AddDomainEvent queues an event for publication after save
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// OrgAggregateRoot is an aggregate root owned by one organization.
// Every organization-scoped query filters on OrganizationID.
type OrgAggregateRoot struct {
	BaseAggregateRoot
	OrganizationID uuid.UUID
	CreatedBy      *uuid.UUID
}

// NewOrgAggregateRoot creates a new organization-scoped aggregate root
func NewOrgAggregateRoot(orgID uuid.UUID) OrgAggregateRoot {
	return OrgAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		OrganizationID:    orgID,
	}
}

// SetCreatedBy records the user who created the aggregate
func (o *OrgAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	o.CreatedBy = &userID
}

// BelongsTo reports whether the aggregate is owned by orgID
func (o *OrgAggregateRoot) BelongsTo(orgID uuid.UUID) bool {
	return o.OrganizationID == orgID
}
