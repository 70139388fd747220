package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans and metrics
var (
	AttrOrganizationID = attribute.Key("arflow.organization_id")
	AttrUserID         = attribute.Key("arflow.user_id")
	AttrRole           = attribute.Key("arflow.role")
	AttrPaymentID      = attribute.Key("arflow.payment_id")
	AttrPaymentMethod  = attribute.Key("arflow.payment.method")
	AttrGateway        = attribute.Key("arflow.payment.gateway")
	AttrProvider       = attribute.Key("arflow.sync.provider")
	AttrSyncEntity     = attribute.Key("arflow.sync.entity")
	AttrSyncTrigger    = attribute.Key("arflow.sync.trigger")
	AttrStatus         = attribute.Key("arflow.status")
)

// StartSpan starts an internal span on the global tracer. The caller ends it,
// usually through End.
//
//	ctx, span := telemetry.StartSpan(ctx, "sync.customers", telemetry.AttrSyncTrigger.String("MANUAL"))
//	defer func() { telemetry.End(span, err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID returns the trace id carried by ctx, or "" outside a sampled span
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
