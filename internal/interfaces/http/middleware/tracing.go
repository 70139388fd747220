package middleware

import (
	"net/http"

	"github.com/arflow/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName    string
	TracerProvider trace.TracerProvider
	// SkipPaths are not traced, typically the health probe
	SkipPaths []string
}

// Tracing wraps otelgin. Span names follow the route pattern, e.g.
// "GET /api/v1/payments/:id", and 5xx responses mark the span as failed.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	opts := []otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			_, skipped := skip[r.URL.Path]
			return !skipped
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// TraceAttributes tags the active server span with the request id and, when
// JWTAuth has already run, the calling organization, user and role. Mount it
// after Tracing and again after JWTAuth.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if id := GetRequestID(c); id != "" {
		span.SetAttributes(attribute.String("http.request_id", id))
	}
	if actor, ok := GetActor(c); ok {
		span.SetAttributes(
			telemetry.AttrOrganizationID.String(actor.OrganizationID.String()),
			telemetry.AttrUserID.String(actor.UserID.String()),
			telemetry.AttrRole.String(string(actor.Role)),
		)
	}
}
