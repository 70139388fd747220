package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/finance"
	appintegration "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService is what the payment endpoints need from finance.PaymentService
type PaymentService interface {
	CreateManualPayment(ctx context.Context, actor authz.Actor, req finance.CreateManualPaymentRequest) (*finance.PaymentResponse, error)
	ProcessCreditCardPayment(ctx context.Context, actor authz.Actor, req finance.ProcessCardPaymentRequest) (*finance.PaymentResponse, error)
	ApplyPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req finance.ApplyPaymentRequest) (*finance.PaymentResponse, error)
	VoidPayment(ctx context.Context, actor authz.Actor, id uuid.UUID, req finance.VoidRequest) (*finance.PaymentResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*finance.PaymentResponse, error)
	List(ctx context.Context, actor authz.Actor, req finance.ListPaymentsRequest) (shared.Paginated[finance.PaymentResponse], error)
}

// PaymentSyncer pushes a single payment to the ERP
type PaymentSyncer interface {
	SyncPaymentToAcumatica(ctx context.Context, actor authz.Actor, paymentID uuid.UUID, trigger integration.SyncTrigger) (*appintegration.PaymentSyncResponse, error)
}

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
	syncer         PaymentSyncer
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService PaymentService, syncer PaymentSyncer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    NewBaseHandler(logger),
		paymentService: paymentService,
		syncer:         syncer,
	}
}

// List handles GET /payments
//
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        request query finance.ListPaymentsRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req finance.ListPaymentsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.paymentService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Get handles GET /payments/:id
//
// @Summary      Get payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.paymentService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// CreateManual handles POST /payments/manual
//
// @Summary      Record manual payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client supplied key for safe retries"
// @Param        request body finance.CreateManualPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/manual [post]
func (h *PaymentHandler) CreateManual(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req finance.CreateManualPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = middleware.GetIdempotencyKey(c)

	payment, err := h.paymentService.CreateManualPayment(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// ProcessCard handles POST /payments/card. A declined card is reported as
// 402 and the failed payment stays on record.
//
// @Summary      Charge a card
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client supplied key for safe retries"
// @Param        request body finance.ProcessCardPaymentRequest true "Card payment"
// @Success      201 {object} dto.Response{data=finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      402 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/card [post]
func (h *PaymentHandler) ProcessCard(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req finance.ProcessCardPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = middleware.GetIdempotencyKey(c)

	payment, err := h.paymentService.ProcessCreditCardPayment(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// Apply handles POST /payments/:id/apply
//
// @Summary      Apply payment to documents
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        Idempotency-Key header string false "Client supplied key for safe retries"
// @Param        request body finance.ApplyPaymentRequest true "Allocations"
// @Success      200 {object} dto.Response{data=finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id}/apply [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req finance.ApplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.ApplyPayment(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Void handles POST /payments/:id/void
//
// @Summary      Void payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        Idempotency-Key header string false "Client supplied key for safe retries"
// @Param        request body finance.VoidRequest false "Reason"
// @Success      200 {object} dto.Response{data=finance.PaymentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id}/void [post]
func (h *PaymentHandler) Void(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req finance.VoidRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.VoidPayment(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Sync handles POST /payments/:id/sync
//
// @Summary      Push payment to the ERP
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.PaymentSyncResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id}/sync [post]
func (h *PaymentHandler) Sync(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.syncer.SyncPaymentToAcumatica(c.Request.Context(), actor, id, integration.SyncTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
