package audit

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/shared"
)

// EventHandler turns every domain event into an audit log entry
type EventHandler struct {
	service *Service
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// EventTypes returns nil to receive all events
func (h *EventHandler) EventTypes() []string {
	return nil
}

// Handle records the event. Events that do not name an actor are
// attributed to the caller in ctx.
func (h *EventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry, err := audit.NewLogFromEvent(event)
	if err != nil {
		return err
	}
	if actor, ok := authz.FromContext(ctx); ok && actor.OrganizationID == entry.OrganizationID {
		if entry.UserID == nil {
			entry.UserID = actor.UserPtr()
		}
		entry.WithRequest(actor.IP, actor.UserAgent)
	}
	h.service.Record(ctx, entry)
	return nil
}

var _ shared.EventHandler = (*EventHandler)(nil)
