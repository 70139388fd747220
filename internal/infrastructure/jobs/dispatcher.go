package jobs

import (
	"context"
	"errors"
	"fmt"

	integrationapp "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the producer side of the queue. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher queues sync work on asynq
type Dispatcher struct {
	client  Enqueuer
	options TaskOptions
	logger  *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(client Enqueuer, options TaskOptions, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, options: options, logger: logger}
}

// DispatchPaymentSync queues a payment push
func (d *Dispatcher) DispatchPaymentSync(ctx context.Context, orgID, paymentID uuid.UUID, trigger integration.SyncTrigger) error {
	task, err := NewPaymentSyncTask(PaymentSyncPayload{
		OrganizationID: orgID,
		PaymentID:      paymentID,
		Trigger:        trigger,
	}, d.options)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, zap.String("payment_id", paymentID.String()))
}

// DispatchEntitySync queues an inbound pull
func (d *Dispatcher) DispatchEntitySync(ctx context.Context, orgID uuid.UUID, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool) error {
	task, err := NewEntitySyncTask(EntitySyncPayload{
		OrganizationID: orgID,
		Entity:         entity,
		Trigger:        trigger,
		Full:           full,
	}, d.options)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task,
		zap.String("organization_id", orgID.String()),
		zap.String("entity", string(entity)))
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, fields ...zap.Field) error {
	info, err := d.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		d.logger.Debug("Identical sync task already queued", append(fields, zap.String("type", task.Type()))...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	d.logger.Debug("Sync task queued", append(fields,
		zap.String("type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue))...)
	return nil
}

var _ integrationapp.SyncDispatcher = (*Dispatcher)(nil)
