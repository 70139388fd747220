package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/audit"
	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuditService lists audit log entries
type AuditService interface {
	List(ctx context.Context, actor authz.Actor, req audit.ListAuditLogsRequest) (shared.Paginated[audit.AuditLogResponse], error)
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	BaseHandler
	auditService AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		BaseHandler:  NewBaseHandler(logger),
		auditService: auditService,
	}
}

// List handles GET /audit-logs
//
// @Summary      List audit log entries
// @Tags         audit
// @Produce      json
// @Param        request query audit.ListAuditLogsRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]audit.AuditLogResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req audit.ListAuditLogsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.auditService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}
