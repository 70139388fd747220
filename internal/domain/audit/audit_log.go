package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Actions written by services rather than derived from domain events
const (
	ActionLoginSucceeded  = "auth.login"
	ActionLoginFailed     = "auth.login_failed"
	ActionPasswordChanged = "auth.password_changed"
	ActionSettingsTested  = "settings.tested"
	ActionOrgUpdated      = "organization.updated"
	ActionSyncTriggered   = "sync.triggered"
)

// Log is an append-only record of something a user or the system did
type Log struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
	Action         string
	EntityType     string
	EntityID       *uuid.UUID
	Metadata       map[string]any
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
}

// NewLog creates an audit record
func NewLog(orgID uuid.UUID, userID *uuid.UUID, action, entityType string, entityID *uuid.UUID) (*Log, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, shared.NewDomainError("INVALID_ACTION", "Audit action cannot be empty")
	}
	if userID != nil && *userID == uuid.Nil {
		userID = nil
	}
	if entityID != nil && *entityID == uuid.Nil {
		entityID = nil
	}
	return &Log{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Metadata:       make(map[string]any),
		CreatedAt:      time.Now(),
	}, nil
}

// NewLogFromEvent derives an audit record from a domain event. The event's
// JSON form becomes the metadata; common envelope fields are dropped.
func NewLogFromEvent(event shared.DomainEvent) (*Log, error) {
	var actor *uuid.UUID
	if ae, ok := event.(shared.ActorEvent); ok {
		actor = ae.ActorID()
	}
	aggID := event.AggregateID()
	log, err := NewLog(event.OrganizationID(), actor, event.EventType(), event.AggregateType(), &aggID)
	if err != nil {
		return nil, err
	}
	log.CreatedAt = event.OccurredAt()

	raw, err := json.Marshal(event)
	if err != nil {
		return log, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err == nil {
		for _, k := range []string{"id", "type", "timestamp", "aggregate_id", "aggregate_type", "organization_id", "actor_id"} {
			delete(meta, k)
		}
		log.Metadata = meta
	}
	return log, nil
}

// WithRequest attaches the caller's network details
func (l *Log) WithRequest(ip, userAgent string) *Log {
	l.IPAddress = ip
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}
	l.UserAgent = userAgent
	return l
}

// With adds a metadata entry
func (l *Log) With(key string, value any) *Log {
	l.Metadata[key] = value
	return l
}

// Filter defines filtering options for audit log queries
type Filter struct {
	shared.Filter
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	UserID     *uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
}
