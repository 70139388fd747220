package identity

import (
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeUser is the aggregate type for users
const AggregateTypeUser = "User"

// User event types
const (
	EventTypeUserCreated       = "user.created"
	EventTypeUserRoleChanged   = "user.role_changed"
	EventTypeUserStatusChanged = "user.status_changed"
)

// UserCreatedEvent is published when a user is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, user.ID, user.OrganizationID, user.CreatedBy),
		Email:           user.Email,
		Role:            user.Role,
	}
}

// UserRoleChangedEvent is published when an admin changes a user's role
type UserRoleChangedEvent struct {
	shared.BaseDomainEvent
	Email        string `json:"email"`
	PreviousRole Role   `json:"previous_role"`
	NewRole      Role   `json:"new_role"`
}

// NewUserRoleChangedEvent creates a new UserRoleChangedEvent
func NewUserRoleChangedEvent(user *User, previous Role, actor uuid.UUID) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleChanged, AggregateTypeUser, user.ID, user.OrganizationID, &actor),
		Email:           user.Email,
		PreviousRole:    previous,
		NewRole:         user.Role,
	}
}

// UserStatusChangedEvent is published when a user is disabled or enabled
type UserStatusChangedEvent struct {
	shared.BaseDomainEvent
	Email  string     `json:"email"`
	Status UserStatus `json:"status"`
}

// NewUserStatusChangedEvent creates a new UserStatusChangedEvent
func NewUserStatusChangedEvent(user *User, actor uuid.UUID) *UserStatusChangedEvent {
	return &UserStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserStatusChanged, AggregateTypeUser, user.ID, user.OrganizationID, &actor),
		Email:           user.Email,
		Status:          user.Status,
	}
}
