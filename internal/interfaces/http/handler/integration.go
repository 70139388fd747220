package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/arflow/backend/internal/application/authz"
	appintegration "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsService manages per-organization integration settings
type SettingsService interface {
	List(ctx context.Context, actor authz.Actor) ([]appintegration.SettingsResponse, error)
	Update(ctx context.Context, actor authz.Actor, provider integration.Provider, req appintegration.UpdateSettingsRequest) (*appintegration.SettingsResponse, error)
	TestConnection(ctx context.Context, actor authz.Actor, provider integration.Provider) (*appintegration.TestConnectionResponse, error)
}

// SyncService runs and reports ERP synchronization
type SyncService interface {
	SyncCustomers(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req appintegration.SyncRequest) (*appintegration.SyncLogResponse, error)
	SyncDocumentsFromAcumatica(ctx context.Context, actor authz.Actor, trigger integration.SyncTrigger, req appintegration.SyncRequest) (*appintegration.SyncLogResponse, error)
	RetryFailedPaymentSyncs(ctx context.Context, actor authz.Actor) (*appintegration.RetryResponse, error)
	ListLogs(ctx context.Context, actor authz.Actor, req appintegration.ListSyncLogsRequest) (shared.Paginated[appintegration.SyncLogResponse], error)
	GetLog(ctx context.Context, actor authz.Actor, id uuid.UUID) (*appintegration.SyncLogResponse, error)
}

// IntegrationHandler serves integration settings and sync endpoints
type IntegrationHandler struct {
	BaseHandler
	settingsService SettingsService
	syncService     SyncService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(settingsService SettingsService, syncService SyncService, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		BaseHandler:     NewBaseHandler(logger),
		settingsService: settingsService,
		syncService:     syncService,
	}
}

// ListSettings handles GET /integrations
//
// @Summary      List integration settings
// @Tags         integrations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appintegration.SettingsResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /integrations [get]
func (h *IntegrationHandler) ListSettings(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	settings, err := h.settingsService.List(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// UpdateSettings handles PUT /integrations/:provider
//
// @Summary      Update integration settings
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        provider path string true "Provider" Enums(ACUMATICA, STRIPE, AUTHORIZE_NET)
// @Param        request body appintegration.UpdateSettingsRequest true "Settings"
// @Success      200 {object} dto.Response{data=appintegration.SettingsResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{provider} [put]
func (h *IntegrationHandler) UpdateSettings(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	var req appintegration.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	settings, err := h.settingsService.Update(c.Request.Context(), actor, provider, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// TestConnection handles POST /integrations/:provider/test. A failed test is
// still a 200; the outcome is in the body.
//
// @Summary      Test integration connection
// @Tags         integrations
// @Produce      json
// @Param        provider path string true "Provider" Enums(ACUMATICA, STRIPE, AUTHORIZE_NET)
// @Success      200 {object} dto.Response{data=appintegration.TestConnectionResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /integrations/{provider}/test [post]
func (h *IntegrationHandler) TestConnection(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	result, err := h.settingsService.TestConnection(c.Request.Context(), actor, provider)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncCustomers handles POST /sync/customers
//
// @Summary      Pull customers from the ERP
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        full query bool false "Ignore the last sync watermark"
// @Param        request body appintegration.SyncRequest false "Sync options"
// @Success      200 {object} dto.Response{data=appintegration.SyncLogResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /sync/customers [post]
func (h *IntegrationHandler) SyncCustomers(c *gin.Context) {
	h.inbound(c, h.syncService.SyncCustomers)
}

// SyncDocuments handles POST /sync/documents
//
// @Summary      Pull documents from the ERP
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        full query bool false "Ignore the last sync watermark"
// @Param        request body appintegration.SyncRequest false "Sync options"
// @Success      200 {object} dto.Response{data=appintegration.SyncLogResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /sync/documents [post]
func (h *IntegrationHandler) SyncDocuments(c *gin.Context) {
	h.inbound(c, h.syncService.SyncDocumentsFromAcumatica)
}

// RetryPayments handles POST /sync/payments/retry
//
// @Summary      Retry failed payment pushes
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=appintegration.RetryResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /sync/payments/retry [post]
func (h *IntegrationHandler) RetryPayments(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	result, err := h.syncService.RetryFailedPaymentSyncs(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListLogs handles GET /sync/logs
//
// @Summary      List sync logs
// @Tags         sync
// @Produce      json
// @Param        request query appintegration.ListSyncLogsRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]appintegration.SyncLogResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /sync/logs [get]
func (h *IntegrationHandler) ListLogs(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req appintegration.ListSyncLogsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.syncService.ListLogs(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// GetLog handles GET /sync/logs/:id
//
// @Summary      Get sync log
// @Tags         sync
// @Produce      json
// @Param        id path string true "Sync log ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.SyncLogResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /sync/logs/{id} [get]
func (h *IntegrationHandler) GetLog(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	log, err := h.syncService.GetLog(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, log)
}

type inboundSync func(context.Context, authz.Actor, integration.SyncTrigger, appintegration.SyncRequest) (*appintegration.SyncLogResponse, error)

func (h *IntegrationHandler) inbound(c *gin.Context, run inboundSync) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req appintegration.SyncRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	if c.Query("full") == "true" {
		req.Full = true
	}
	log, err := run(c.Request.Context(), actor, integration.SyncTriggerManual, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, log)
}

// provider parses :provider, accepting "stripe" or "authorize-net" as well
// as the canonical upper-case names
func (h *IntegrationHandler) provider(c *gin.Context) (integration.Provider, bool) {
	raw := strings.ToUpper(strings.ReplaceAll(c.Param("provider"), "-", "_"))
	p := integration.Provider(raw)
	if !p.IsValid() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Unknown provider: "+c.Param("provider"))
		return "", false
	}
	return p, true
}
