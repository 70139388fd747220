package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists audit logs. Logs are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, log *Log) error
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter Filter) ([]Log, int64, error)
}
