package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/arflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func testActor(role identity.Role) authz.Actor {
	return authz.Actor{
		OrganizationID: uuid.New(),
		UserID:         uuid.New(),
		Email:          "user@example.com",
		Role:           role,
	}
}

// newRouter returns an engine whose requests are authenticated as actor.
// A zero actor leaves requests unauthenticated.
func newRouter(actor authz.Actor) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if actor.OrganizationID != uuid.Nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ActorKey, actor)
			c.Next()
		})
	}
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return dto.Response{Success: envelope.Success, Meta: envelope.Meta}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.False(t, resp.Success)
	return resp
}
