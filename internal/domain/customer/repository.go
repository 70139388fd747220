package customer

import (
	"context"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter defines filtering options for customer queries
type Filter struct {
	shared.Filter
	Status *Status
	Source *Source
}

// Repository defines the interface for customer persistence
type Repository interface {
	// FindByIDForOrg finds a customer by ID within an organization
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Customer, error)

	// FindByNumber finds a customer by its customer number
	FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*Customer, error)

	// FindByERPReferences returns customers keyed by Acumatica CustomerID
	FindByERPReferences(ctx context.Context, orgID uuid.UUID, refs []string) (map[string]*Customer, error)

	// FindAllForOrg lists customers matching the filter and the total count
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter Filter) ([]Customer, int64, error)

	// ExistsByNumber checks whether a customer number is taken
	ExistsByNumber(ctx context.Context, orgID uuid.UUID, number string) (bool, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error

	// SaveWithLock saves with a version check, failing on concurrent modification
	SaveWithLock(ctx context.Context, customer *Customer) error

	// DeleteForOrg deletes a customer within an organization
	DeleteForOrg(ctx context.Context, orgID, id uuid.UUID) error
}
