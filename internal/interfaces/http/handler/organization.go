package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrganizationService reads and updates the caller's organization
type OrganizationService interface {
	Get(ctx context.Context, actor authz.Actor) (*identity.OrganizationResponse, error)
	Update(ctx context.Context, actor authz.Actor, req identity.UpdateOrganizationRequest) (*identity.OrganizationResponse, error)
}

// UserService manages the users of an organization
type UserService interface {
	Create(ctx context.Context, actor authz.Actor, req identity.CreateUserRequest) (*identity.UserResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*identity.UserResponse, error)
	List(ctx context.Context, actor authz.Actor, req identity.ListUsersRequest) (shared.Paginated[identity.UserResponse], error)
	ChangeRole(ctx context.Context, actor authz.Actor, id uuid.UUID, req identity.ChangeRoleRequest) (*identity.UserResponse, error)
	Disable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*identity.UserResponse, error)
	Enable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*identity.UserResponse, error)
}

// OrganizationHandler serves the organization profile and its users
type OrganizationHandler struct {
	BaseHandler
	orgService  OrganizationService
	userService UserService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgService OrganizationService, userService UserService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		BaseHandler: NewBaseHandler(logger),
		orgService:  orgService,
		userService: userService,
	}
}

// GetOrganization handles GET /organization
//
// @Summary      Get organization
// @Tags         organization
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.OrganizationResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /organization [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	org, err := h.orgService.Get(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// UpdateOrganization handles PUT /organization
//
// @Summary      Update organization
// @Tags         organization
// @Accept       json
// @Produce      json
// @Param        request body identity.UpdateOrganizationRequest true "Organization profile"
// @Success      200 {object} dto.Response{data=identity.OrganizationResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /organization [put]
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req identity.UpdateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	org, err := h.orgService.Update(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// ListUsers handles GET /users
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        request query identity.ListUsersRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]identity.UserResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users [get]
func (h *OrganizationHandler) ListUsers(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req identity.ListUsersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.userService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// GetUser handles GET /users/:id
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.UserResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *OrganizationHandler) GetUser(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// CreateUser handles POST /users
//
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.CreateUserRequest true "User"
// @Success      201 {object} dto.Response{data=identity.UserResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users [post]
func (h *OrganizationHandler) CreateUser(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req identity.CreateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}
	user, err := h.userService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// ChangeUserRole handles PUT /users/:id/role
//
// @Summary      Change user role
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body identity.ChangeRoleRequest true "Role"
// @Success      200 {object} dto.Response{data=identity.UserResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/role [put]
func (h *OrganizationHandler) ChangeUserRole(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req identity.ChangeRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	user, err := h.userService.ChangeRole(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// DisableUser handles POST /users/:id/disable
//
// @Summary      Disable user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.UserResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/disable [post]
func (h *OrganizationHandler) DisableUser(c *gin.Context) {
	h.userStatus(c, h.userService.Disable)
}

// EnableUser handles POST /users/:id/enable
//
// @Summary      Enable user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.UserResponse}
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/enable [post]
func (h *OrganizationHandler) EnableUser(c *gin.Context) {
	h.userStatus(c, h.userService.Enable)
}

func (h *OrganizationHandler) userStatus(c *gin.Context, fn func(context.Context, authz.Actor, uuid.UUID) (*identity.UserResponse, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
