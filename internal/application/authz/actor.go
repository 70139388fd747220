// Package authz carries the authenticated caller through the application
// layer and checks what the caller's role allows.
package authz

import (
	"context"
	"fmt"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Actor is the caller of an application service
type Actor struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Email          string
	Role           identity.Role
	// CustomerID is set for CUSTOMER portal users
	CustomerID *uuid.UUID
	IP         string
	UserAgent  string
}

// System returns the actor used by background jobs of an organization
func System(orgID uuid.UUID) Actor {
	return Actor{OrganizationID: orgID, Role: identity.RoleAdmin}
}

// IsSystem reports whether the actor is a background job
func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil
}

// UserPtr returns the user ID, or nil for the system actor
func (a Actor) UserPtr() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}

// Require fails with FORBIDDEN unless the actor holds one of roles
func (a Actor) Require(roles ...identity.Role) error {
	if a.OrganizationID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	if a.Role.In(roles...) {
		return nil
	}
	return shared.NewDomainError(shared.ErrForbidden.Code,
		fmt.Sprintf("Role %s is not allowed to perform this action", a.Role))
}

// RequireStaff allows ADMIN, MANAGER and VIEWER
func (a Actor) RequireStaff() error {
	return a.Require(identity.StaffRoles...)
}

// RequireWriter allows ADMIN and MANAGER
func (a Actor) RequireWriter() error {
	return a.Require(identity.WriterRoles...)
}

// RequireAdmin allows ADMIN only
func (a Actor) RequireAdmin() error {
	return a.Require(identity.RoleAdmin)
}

// CanSeeCustomer reports whether the actor may read customerID's records.
// Staff see every customer; portal users see only their own.
func (a Actor) CanSeeCustomer(customerID uuid.UUID) bool {
	if a.Role.IsStaff() {
		return true
	}
	return a.Role == identity.RoleCustomer && a.CustomerID != nil && *a.CustomerID == customerID
}

// RequireCustomerAccess returns NOT_FOUND when the actor may not see
// customerID, so portal users cannot guess at other customers' IDs
func (a Actor) RequireCustomerAccess(customerID uuid.UUID) error {
	if a.CanSeeCustomer(customerID) {
		return nil
	}
	return shared.ErrNotFound
}

// ScopeCustomer narrows a customer filter for portal users. Staff filters
// pass through; a portal user always gets their own customer.
func (a Actor) ScopeCustomer(requested *uuid.UUID) (*uuid.UUID, error) {
	if a.Role.IsStaff() {
		return requested, nil
	}
	if a.Role != identity.RoleCustomer || a.CustomerID == nil {
		return nil, shared.ErrForbidden
	}
	if requested != nil && *requested != *a.CustomerID {
		return nil, shared.ErrNotFound
	}
	own := *a.CustomerID
	return &own, nil
}

type actorKey struct{}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor stored in ctx
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
