package integration

import (
	"context"
	"sync"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const inlineRunTimeout = 10 * time.Minute

// InlineDispatcher runs sync work in a goroutine of this process. It is used
// when the job queue is disabled; a failed run is not retried automatically.
type InlineDispatcher struct {
	service *SyncService
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewInlineDispatcher creates a new InlineDispatcher
func NewInlineDispatcher(service *SyncService, logger *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{service: service, logger: logger}
}

// DispatchPaymentSync pushes the payment in the background
func (d *InlineDispatcher) DispatchPaymentSync(ctx context.Context, orgID, paymentID uuid.UUID, trigger integration.SyncTrigger) error {
	d.run(ctx, func(runCtx context.Context) error {
		_, err := d.service.SyncPaymentToAcumatica(runCtx, authz.System(orgID), paymentID, trigger)
		return err
	}, zap.String("payment_id", paymentID.String()))
	return nil
}

// DispatchEntitySync pulls entity in the background
func (d *InlineDispatcher) DispatchEntitySync(ctx context.Context, orgID uuid.UUID, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool) error {
	d.run(ctx, func(runCtx context.Context) error {
		_, err := d.service.SyncEntity(runCtx, authz.System(orgID), entity, trigger, full)
		return err
	}, zap.String("organization_id", orgID.String()), zap.String("entity", string(entity)))
	return nil
}

// Wait blocks until every dispatched run has finished or ctx is done. Runs
// still going when ctx ends are left to the stale-run cleanup.
func (d *InlineDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *InlineDispatcher) run(ctx context.Context, fn func(context.Context) error, fields ...zap.Field) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineRunTimeout)
		defer cancel()
		if err := fn(runCtx); err != nil {
			d.logger.Warn("background sync failed", append(fields, zap.Error(err))...)
		}
	}()
}

var _ SyncDispatcher = (*InlineDispatcher)(nil)
