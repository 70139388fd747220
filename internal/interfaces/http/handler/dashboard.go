package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DashboardService computes receivable totals and aging
type DashboardService interface {
	Summary(ctx context.Context, actor authz.Actor) (*finance.SummaryResponse, error)
	Aging(ctx context.Context, actor authz.Actor, customerID *uuid.UUID) (*finance.AgingResponse, error)
}

// DashboardHandler serves dashboard figures
type DashboardHandler struct {
	BaseHandler
	dashboardService DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// Summary handles GET /dashboard/summary
//
// @Summary      Receivables summary
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} dto.Response{data=finance.SummaryResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	summary, err := h.dashboardService.Summary(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Aging handles GET /dashboard/aging?customer_id=
//
// @Summary      Receivables aging
// @Tags         dashboard
// @Produce      json
// @Param        customer_id query string false "Restrict to one customer" format(uuid)
// @Success      200 {object} dto.Response{data=finance.AgingResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/aging [get]
func (h *DashboardHandler) Aging(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var customerID *uuid.UUID
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid customer_id format")
			return
		}
		customerID = &id
	}
	aging, err := h.dashboardService.Aging(c.Request.Context(), actor, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, aging)
}
