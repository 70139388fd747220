// Package audit records who did what. Entries come from domain events on
// the event bus and from services for actions with no aggregate behind them.
package audit

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/audit"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service writes and lists audit logs
type Service struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewService creates a new audit service
func NewService(repo audit.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record stores entry. Audit failures are logged and never fail the caller.
func (s *Service) Record(ctx context.Context, entry *audit.Log) {
	if entry == nil {
		return
	}
	if entry.IPAddress == "" {
		if actor, ok := authz.FromContext(ctx); ok {
			entry.WithRequest(actor.IP, actor.UserAgent)
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Enrich(ctx, s.logger).Error("failed to write audit log",
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

// RecordAction builds and stores an entry for actor
func (s *Service) RecordAction(ctx context.Context, actor authz.Actor, action, entityType string, entityID *uuid.UUID, metadata map[string]any) {
	entry, err := audit.NewLog(actor.OrganizationID, actor.UserPtr(), action, entityType, entityID)
	if err != nil {
		logger.Enrich(ctx, s.logger).Warn("invalid audit entry", zap.String("action", action), zap.Error(err))
		return
	}
	for k, v := range metadata {
		entry.With(k, v)
	}
	entry.WithRequest(actor.IP, actor.UserAgent)
	s.Record(ctx, entry)
}

// List returns the organization's audit logs. ADMIN only.
func (s *Service) List(ctx context.Context, actor authz.Actor, req ListAuditLogsRequest) (shared.Paginated[AuditLogResponse], error) {
	if err := actor.RequireAdmin(); err != nil {
		return shared.Paginated[AuditLogResponse]{}, err
	}
	filter := req.toFilter()
	filter.Normalize()
	logs, total, err := s.repo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[AuditLogResponse]{}, err
	}
	items := make([]AuditLogResponse, len(logs))
	for i := range logs {
		items[i] = ToAuditLogResponse(&logs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
