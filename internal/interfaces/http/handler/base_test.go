package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found"), http.StatusNotFound, dto.ErrCodeNotFound, "Customer not found"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, dto.ErrCodeForbidden, shared.ErrForbidden.Message},
		{"sync in progress", shared.ErrSyncInProgress, http.StatusConflict, dto.ErrCodeSyncInProgress, shared.ErrSyncInProgress.Message},
		{"declined", fmt.Errorf("%w: insufficient funds", finance.ErrGatewayDeclined), http.StatusPaymentRequired, dto.ErrCodePaymentDeclined, ""},
		{"opaque", errors.New("pq: connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBaseHandler(nil)
			r := newRouter(testActor(identity.RoleAdmin))
			r.GET("/test", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := doJSON(t, r, http.MethodGet, "/test", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error)
			}
			assert.NotContains(t, resp.Error, "pq:")
		})
	}
}

type bindTarget struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count" binding:"min=1"`
}

func TestBaseHandler_BindJSON(t *testing.T) {
	h := NewBaseHandler(nil)
	r := newRouter(testActor(identity.RoleAdmin))
	r.POST("/test", func(c *gin.Context) {
		var req bindTarget
		if !h.BindJSON(c, &req) {
			return
		}
		h.Success(c, req)
	})

	t.Run("valid", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/test", bindTarget{Name: "a", Count: 2})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("validation details", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/test", map[string]any{"count": 0})
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Code)
		fields := make([]string, 0, len(resp.Details))
		for _, d := range resp.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"name", "count"}, fields)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/test", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w).Code)
	})
}

func TestBaseHandler_ActorAndUUIDParam(t *testing.T) {
	h := NewBaseHandler(nil)
	handler := func(c *gin.Context) {
		if _, ok := h.Actor(c); !ok {
			return
		}
		if _, ok := h.UUIDParam(c, "id"); !ok {
			return
		}
		h.NoContent(c)
	}

	authed := newRouter(testActor(identity.RoleAdmin))
	authed.GET("/things/:id", handler)
	w := doJSON(t, authed, http.MethodGet, "/things/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeError(t, w).Code)

	anon := newRouter(authz.Actor{})
	anon.GET("/things/:id", handler)
	w = doJSON(t, anon, http.MethodGet, "/things/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Code)
}

func TestPaginated_EmptyItems(t *testing.T) {
	r := newRouter(testActor(identity.RoleAdmin))
	r.GET("/test", func(c *gin.Context) {
		Paginated(c, shared.Paginated[string]{Page: 1, PageSize: 20})
	})

	w := doJSON(t, r, http.MethodGet, "/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	var items []string
	resp := decodeSuccess(t, w, &items)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 20, resp.Meta.PageSize)
}
