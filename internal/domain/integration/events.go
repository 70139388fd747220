package integration

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate types in the integration context
const (
	AggregateTypeSettings = "IntegrationSettings"
	AggregateTypeSyncLog  = "SyncLog"
)

// Integration event types
const (
	EventTypeSettingsUpdated = "settings.updated"
	EventTypeSyncCompleted   = "sync.completed"
)

// SettingsUpdatedEvent is published when an admin changes provider settings.
// It never carries credentials.
type SettingsUpdatedEvent struct {
	shared.BaseDomainEvent
	Provider Provider `json:"provider"`
	Enabled  bool     `json:"enabled"`
}

// NewSettingsUpdatedEvent creates a new SettingsUpdatedEvent
func NewSettingsUpdatedEvent(s *Settings, actor uuid.UUID) *SettingsUpdatedEvent {
	var actorPtr *uuid.UUID
	if actor != uuid.Nil {
		actorPtr = &actor
	}
	return &SettingsUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettingsUpdated, AggregateTypeSettings, s.ID, s.OrganizationID, actorPtr),
		Provider:        s.Provider,
		Enabled:         s.Enabled,
	}
}

// SyncCompletedEvent is published when a sync run finishes, whatever its outcome
type SyncCompletedEvent struct {
	shared.BaseDomainEvent
	Provider  Provider      `json:"provider"`
	Entity    SyncEntity    `json:"entity"`
	Status    SyncLogStatus `json:"status"`
	Trigger   SyncTrigger   `json:"trigger"`
	Duration  time.Duration `json:"duration_ns"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// NewSyncCompletedEvent creates a new SyncCompletedEvent
func NewSyncCompletedEvent(l *SyncLog) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncCompleted, AggregateTypeSyncLog, l.ID, l.OrganizationID, l.TriggeredBy),
		Provider:        l.Provider,
		Entity:          l.Entity,
		Status:          l.Status,
		Trigger:         l.Trigger,
		Duration:        l.Duration(),
		Processed:       l.Processed,
		Created:         l.Created,
		Updated:         l.Updated,
		Skipped:         l.Skipped,
		Failed:          l.Failed,
		Error:           l.ErrorMessage,
	}
}
