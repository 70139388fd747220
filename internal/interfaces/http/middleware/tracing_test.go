package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T, actor *authz.Actor) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{ServiceName: "arflow-test", TracerProvider: tp, SkipPaths: []string{"/health"}}))
	router.Use(TraceAttributes())
	if actor != nil {
		router.Use(func(c *gin.Context) {
			c.Set(ActorKey, *actor)
			c.Next()
		})
		router.Use(TraceAttributes())
	}
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/payments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	return router, recorder
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]string {
	out := map[string]string{}
	for _, kv := range s.Attributes() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestTracing_RouteSpan(t *testing.T) {
	router, recorder := newTracedRouter(t, nil)

	w := serve(router, http.MethodGet, "/payments/42", map[string]string{RequestIDHeader: "req-1"})
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/payments/:id")
	assert.Equal(t, "req-1", spanAttrs(spans[0])["http.request_id"])
	assert.NotContains(t, spanAttrs(spans[0]), "arflow.organization_id")
}

func TestTracing_ActorAttributes(t *testing.T) {
	actor := authz.Actor{OrganizationID: uuid.New(), UserID: uuid.New(), Role: identity.RoleManager}
	router, recorder := newTracedRouter(t, &actor)

	serve(router, http.MethodGet, "/payments/42", nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, actor.OrganizationID.String(), attrs["arflow.organization_id"])
	assert.Equal(t, actor.UserID.String(), attrs["arflow.user_id"])
	assert.Equal(t, "MANAGER", attrs["arflow.role"])
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	router, recorder := newTracedRouter(t, nil)

	serve(router, http.MethodGet, "/boom", nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SkipsHealth(t *testing.T) {
	router, recorder := newTracedRouter(t, nil)

	w := serve(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorder.Ended())
}
