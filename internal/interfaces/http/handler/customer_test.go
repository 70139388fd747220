package handler

import (
	"net/http"
	"testing"

	"github.com/arflow/backend/internal/application/customer"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func customerRouter(h *CustomerHandler, r *gin.Engine) *gin.Engine {
	g := r.Group("/customers")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/activate", h.Activate)
	g.POST("/:id/deactivate", h.Deactivate)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/statement", h.Statement)
	return r
}

func TestCustomerHandler_List(t *testing.T) {
	actor := testActor(identity.RoleManager)
	svc := new(MockCustomerService)
	r := customerRouter(NewCustomerHandler(svc, nil), newRouter(actor))

	svc.On("List", mock.Anything, actor, customer.ListCustomersRequest{Page: 2, PageSize: 10, Search: "acme", Status: "ACTIVE"}).
		Return(shared.Paginated[customer.CustomerResponse]{
			Items:      []customer.CustomerResponse{{ID: uuid.New(), CompanyName: "Acme"}},
			Total:      11,
			Page:       2,
			PageSize:   10,
			TotalPages: 2,
		}, nil)

	w := doJSON(t, r, http.MethodGet, "/customers?page=2&page_size=10&search=acme&status=ACTIVE", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var items []customer.CustomerResponse
	resp := decodeSuccess(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Acme", items[0].CompanyName)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestCustomerHandler_List_RejectsUnknownStatus(t *testing.T) {
	svc := new(MockCustomerService)
	r := customerRouter(NewCustomerHandler(svc, nil), newRouter(testActor(identity.RoleAdmin)))

	w := doJSON(t, r, http.MethodGet, "/customers?status=DELETED", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
}

func TestCustomerHandler_Create(t *testing.T) {
	actor := testActor(identity.RoleAdmin)
	svc := new(MockCustomerService)
	r := customerRouter(NewCustomerHandler(svc, nil), newRouter(actor))

	t.Run("created", func(t *testing.T) {
		req := customer.CreateCustomerRequest{CustomerNumber: "C-100", CompanyName: "Acme", PaymentTermsDays: 30}
		svc.On("Create", mock.Anything, actor, req).
			Return(&customer.CustomerResponse{ID: uuid.New(), CustomerNumber: "C-100", CompanyName: "Acme"}, nil).Once()

		w := doJSON(t, r, http.MethodPost, "/customers", req)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("duplicate number", func(t *testing.T) {
		svc.On("Create", mock.Anything, actor, mock.Anything).
			Return(nil, shared.NewDomainError("CUSTOMER_EXISTS", "A customer with this number already exists")).Once()

		w := doJSON(t, r, http.MethodPost, "/customers",
			customer.CreateCustomerRequest{CustomerNumber: "C-100", CompanyName: "Acme"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeError(t, w).Code)
	})

	t.Run("missing company name", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/customers", map[string]any{"customer_number": "C-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCustomerHandler_GetNotFound(t *testing.T) {
	actor := testActor(identity.RoleViewer)
	id := uuid.New()
	svc := new(MockCustomerService)
	r := customerRouter(NewCustomerHandler(svc, nil), newRouter(actor))

	svc.On("Get", mock.Anything, actor, id).
		Return(nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found"))

	w := doJSON(t, r, http.MethodGet, "/customers/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, w).Code)
}

func TestCustomerHandler_DeleteAndDeactivate(t *testing.T) {
	actor := testActor(identity.RoleAdmin)
	id := uuid.New()
	svc := new(MockCustomerService)
	r := customerRouter(NewCustomerHandler(svc, nil), newRouter(actor))

	svc.On("Delete", mock.Anything, actor, id).Return(nil).Once()
	w := doJSON(t, r, http.MethodDelete, "/customers/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	svc.On("Delete", mock.Anything, actor, id).
		Return(shared.NewDomainError("CUSTOMER_HAS_DOCUMENTS", "Customer has documents and cannot be deleted; deactivate it instead")).Once()
	w = doJSON(t, r, http.MethodDelete, "/customers/"+id.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	svc.On("Deactivate", mock.Anything, actor, id).
		Return(&customer.CustomerResponse{ID: id, Status: "INACTIVE"}, nil).Once()
	w = doJSON(t, r, http.MethodPost, "/customers/"+id.String()+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got customer.CustomerResponse
	decodeSuccess(t, w, &got)
	assert.Equal(t, "INACTIVE", got.Status)
	svc.AssertExpectations(t)
}
