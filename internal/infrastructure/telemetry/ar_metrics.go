package telemetry

import (
	"context"
	"errors"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Payment status values recorded on arflow_payments_total
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusVoided    = "voided"
	PaymentStatusRefunded  = "refunded"
)

// ARMetrics turns payment and sync events into business metrics. It is
// registered on the event bus like any other handler.
type ARMetrics struct {
	payments      *Counter
	paymentAmount *Histogram
	paymentSyncs  *Counter
	syncRuns      *Counter
	syncDuration  *Histogram
	syncRecords   *Counter
}

// NewARMetrics creates the instruments on meter
func NewARMetrics(meter metric.Meter) (*ARMetrics, error) {
	m := &ARMetrics{}
	var errs []error
	var err error

	m.payments, err = NewCounter(meter, "arflow_payments_total", "Payments by final status, method and gateway")
	errs = append(errs, err)
	m.paymentAmount, err = NewHistogram(meter, "arflow_payment_amount", "Completed payment amounts", "{currency}", AmountBuckets)
	errs = append(errs, err)
	m.paymentSyncs, err = NewCounter(meter, "arflow_payment_syncs_total", "Payment pushes to the ERP by outcome")
	errs = append(errs, err)
	m.syncRuns, err = NewCounter(meter, "arflow_sync_runs_total", "Sync runs by entity, status and trigger")
	errs = append(errs, err)
	m.syncDuration, err = NewHistogram(meter, "arflow_sync_duration_seconds", "Sync run duration", "s", DurationBuckets)
	errs = append(errs, err)
	m.syncRecords, err = NewCounter(meter, "arflow_sync_records_total", "Records handled by sync runs, by result")
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *ARMetrics) EventTypes() []string {
	return []string{
		finance.EventTypePaymentCreated,
		finance.EventTypePaymentFailed,
		finance.EventTypePaymentVoided,
		finance.EventTypePaymentRefunded,
		finance.EventTypePaymentSynced,
		finance.EventTypePaymentSyncFailed,
		integration.EventTypeSyncCompleted,
	}
}

// Handle implements shared.EventHandler. Metrics never fail event delivery.
func (m *ARMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *finance.PaymentCreatedEvent:
		attrs := []attribute.KeyValue{
			AttrStatus.String(PaymentStatusCompleted),
			AttrPaymentMethod.String(string(e.Method)),
			AttrGateway.String(string(e.Gateway)),
		}
		m.payments.Inc(ctx, attrs...)
		m.paymentAmount.Record(ctx, e.Amount.InexactFloat64(),
			AttrPaymentMethod.String(string(e.Method)),
			attribute.String("currency", e.Currency),
		)
	case *finance.PaymentFailedEvent:
		m.payments.Inc(ctx,
			AttrStatus.String(PaymentStatusFailed),
			AttrPaymentMethod.String(string(finance.PaymentMethodCreditCard)),
			AttrGateway.String(string(e.Gateway)),
		)
	case *finance.PaymentVoidedEvent:
		m.payments.Inc(ctx, AttrStatus.String(PaymentStatusVoided))
	case *finance.PaymentRefundedEvent:
		m.payments.Inc(ctx,
			AttrStatus.String(PaymentStatusRefunded),
			AttrGateway.String(string(e.Gateway)),
		)
	case *finance.PaymentSyncedEvent:
		m.paymentSyncs.Inc(ctx, attribute.String("outcome", "synced"))
	case *finance.PaymentSyncFailedEvent:
		m.paymentSyncs.Inc(ctx, attribute.String("outcome", "failed"))
	case *integration.SyncCompletedEvent:
		m.recordSync(ctx, e)
	}
	return nil
}

func (m *ARMetrics) recordSync(ctx context.Context, e *integration.SyncCompletedEvent) {
	base := []attribute.KeyValue{
		AttrProvider.String(string(e.Provider)),
		AttrSyncEntity.String(string(e.Entity)),
	}
	m.syncRuns.Inc(ctx, append(base,
		AttrStatus.String(string(e.Status)),
		AttrSyncTrigger.String(string(e.Trigger)),
	)...)
	if e.Duration > 0 {
		m.syncDuration.RecordDuration(ctx, e.Duration, base...)
	}
	for result, n := range map[string]int{
		"created": e.Created,
		"updated": e.Updated,
		"skipped": e.Skipped,
		"failed":  e.Failed,
	} {
		if n > 0 {
			m.syncRecords.Add(ctx, int64(n), append(base, attribute.String("result", result))...)
		}
	}
}
