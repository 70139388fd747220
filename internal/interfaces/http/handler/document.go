package handler

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/application/finance"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService is what the document endpoints need from finance.DocumentService
type DocumentService interface {
	Create(ctx context.Context, actor authz.Actor, req finance.CreateDocumentRequest) (*finance.DocumentResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*finance.DocumentResponse, error)
	List(ctx context.Context, actor authz.Actor, req finance.ListDocumentsRequest) (shared.Paginated[finance.DocumentResponse], error)
	Void(ctx context.Context, actor authz.Actor, id uuid.UUID, req finance.VoidRequest) (*finance.DocumentResponse, error)
}

// DocumentHandler handles invoice and memo HTTP requests
type DocumentHandler struct {
	BaseHandler
	documentService DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:     NewBaseHandler(logger),
		documentService: documentService,
	}
}

// List handles GET /documents
//
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Param        request query finance.ListDocumentsRequest false "Filters and paging"
// @Success      200 {object} dto.Response{data=[]finance.DocumentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req finance.ListDocumentsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.documentService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Create handles POST /documents
//
// @Summary      Create invoice or memo
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body finance.CreateDocumentRequest true "Document"
// @Success      201 {object} dto.Response{data=finance.DocumentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req finance.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.documentService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// Get handles GET /documents/:id
//
// @Summary      Get document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=finance.DocumentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Void handles POST /documents/:id/void. The reason is optional.
//
// @Summary      Void document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body finance.VoidRequest false "Reason"
// @Success      200 {object} dto.Response{data=finance.DocumentResponse}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /documents/{id}/void [post]
func (h *DocumentHandler) Void(c *gin.Context) {
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
	doc, err := h.documentService.Void(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}
