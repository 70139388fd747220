package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	orgIDKey     contextKey = "organization_id"
	userIDKey    contextKey = "user_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the context logger, or a no-op logger when none is set
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor stores the authenticated organization and user in the context
func WithActor(ctx context.Context, orgID, userID string) context.Context {
	ctx = context.WithValue(ctx, orgIDKey, orgID)
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestID returns the request ID stored in ctx
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// L returns the context logger enriched with request_id, organization_id,
// user_id and trace_id when they are present.
//
//	logger.L(ctx).Info("payment completed", zap.String("payment_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the context's correlation fields to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if v, _ := ctx.Value(requestIDKey).(string); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v, _ := ctx.Value(orgIDKey).(string); v != "" {
		fields = append(fields, zap.String("organization_id", v))
	}
	if v, _ := ctx.Value(userIDKey).(string); v != "" {
		fields = append(fields, zap.String("user_id", v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
