package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/customer"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerService is what the customer endpoints need from customer.Service
type CustomerService interface {
	Create(ctx context.Context, actor authz.Actor, req customer.CreateCustomerRequest) (*customer.CustomerResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error)
	List(ctx context.Context, actor authz.Actor, req customer.ListCustomersRequest) (shared.Paginated[customer.CustomerResponse], error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req customer.UpdateCustomerRequest) (*customer.CustomerResponse, error)
	Activate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error)
	Deactivate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.CustomerResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	Statement(ctx context.Context, actor authz.Actor, id uuid.UUID) (*customer.StatementResponse, error)
}

// CustomerHandler handles customer HTTP requests
type CustomerHandler struct {
	BaseHandler
	customerService CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		BaseHandler:     NewBaseHandler(logger),
		customerService: customerService,
	}
}

// List handles GET /customers
//
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        request query customer.ListCustomersRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]customer.CustomerResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req customer.ListCustomersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.customerService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Create handles POST /customers
//
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body customer.CreateCustomerRequest true "Customer"
// @Success      201 {object} dto.Response{data=customer.CustomerResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req customer.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.customerService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /customers/:id
//
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=customer.CustomerResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	h.byID(c, h.customerService.Get)
}

// Update handles PUT /customers/:id
//
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body customer.UpdateCustomerRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=customer.CustomerResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req customer.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.customerService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate handles POST /customers/:id/activate
//
// @Summary      Activate customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=customer.CustomerResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/activate [post]
func (h *CustomerHandler) Activate(c *gin.Context) {
	h.byID(c, h.customerService.Activate)
}

// Deactivate handles POST /customers/:id/deactivate
//
// @Summary      Deactivate customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=customer.CustomerResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/deactivate [post]
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	h.byID(c, h.customerService.Deactivate)
}

// Delete handles DELETE /customers/:id
//
// @Summary      Delete customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      204
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.customerService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Statement handles GET /customers/:id/statement
//
// @Summary      Customer statement
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=customer.StatementResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/statement [get]
func (h *CustomerHandler) Statement(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	statement, err := h.customerService.Statement(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

func (h *CustomerHandler) byID(c *gin.Context, fn func(context.Context, authz.Actor, uuid.UUID) (*customer.CustomerResponse, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
