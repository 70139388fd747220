package integration

import (
	"context"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SettingsRepository defines persistence for integration settings
type SettingsRepository interface {
	// FindByProvider returns shared.ErrNotFound when the provider was never configured
	FindByProvider(ctx context.Context, orgID uuid.UUID, provider Provider) (*Settings, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID) ([]Settings, error)
	// FindEnabled returns enabled settings of provider across all organizations
	FindEnabled(ctx context.Context, provider Provider) ([]Settings, error)
	// FindDefaultGateway returns the enabled gateway marked as default
	FindDefaultGateway(ctx context.Context, orgID uuid.UUID) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
	SaveWithLock(ctx context.Context, settings *Settings) error
}

// SyncLogFilter defines filtering options for sync log queries
type SyncLogFilter struct {
	shared.Filter
	Provider *Provider
	Entity   *SyncEntity
	Status   *SyncLogStatus
	EntityID *uuid.UUID
	FromDate *time.Time
	ToDate   *time.Time
}

// SyncLogRepository defines persistence for sync logs
type SyncLogRepository interface {
	Save(ctx context.Context, log *SyncLog) error
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*SyncLog, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter SyncLogFilter) ([]SyncLog, int64, error)
	// FindLastSuccessful returns the latest SUCCESS or PARTIAL run
	FindLastSuccessful(ctx context.Context, orgID uuid.UUID, provider Provider, entity SyncEntity) (*SyncLog, error)
	// FindLatest returns the latest run regardless of outcome
	FindLatest(ctx context.Context, orgID uuid.UUID, provider Provider, entity SyncEntity) (*SyncLog, error)
	// CountFailedSince counts FAILED runs started at or after since
	CountFailedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error)
	// FailStale marks RUNNING logs older than before as FAILED, returning how many
	FailStale(ctx context.Context, before time.Time) (int64, error)
}
