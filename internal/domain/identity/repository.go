package identity

import (
	"context"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserFilter defines filtering options for user queries
type UserFilter struct {
	shared.Filter
	Role   *Role
	Status *UserStatus
}

// OrganizationRepository defines persistence for organizations
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	// FindActive returns every active organization, used by background schedulers
	FindActive(ctx context.Context) ([]Organization, error)
	Save(ctx context.Context, org *Organization) error
}

// UserRepository defines persistence for users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*User, error)
	// FindByEmail looks a user up across organizations; emails are globally unique
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter UserFilter) ([]User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *User) error
}
