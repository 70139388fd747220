// Package jobs runs Acumatica sync work on a Redis-backed asynq queue so
// failed pushes and pulls are retried with backoff.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types stored in Redis
const (
	TaskPaymentSync = "sync:payment"
	TaskEntitySync  = "sync:entity"
)

// Queue names and their worker share
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// PaymentSyncPayload is the payload of a payment push
type PaymentSyncPayload struct {
	OrganizationID uuid.UUID               `json:"organization_id"`
	PaymentID      uuid.UUID               `json:"payment_id"`
	Trigger        integration.SyncTrigger `json:"trigger"`
}

// EntitySyncPayload is the payload of an inbound pull
type EntitySyncPayload struct {
	OrganizationID uuid.UUID               `json:"organization_id"`
	Entity         integration.SyncEntity  `json:"entity"`
	Trigger        integration.SyncTrigger `json:"trigger"`
	Full           bool                    `json:"full"`
}

// TaskOptions are the retry and timeout settings of queued tasks
type TaskOptions struct {
	MaxRetry int
	Timeout  time.Duration
	// UniqueFor drops a task while an identical one is still queued
	UniqueFor time.Duration
}

func (o TaskOptions) asynqOptions(queue string) []asynq.Option {
	opts := []asynq.Option{
		asynq.MaxRetry(o.MaxRetry),
		asynq.Queue(queue),
	}
	if o.Timeout > 0 {
		opts = append(opts, asynq.Timeout(o.Timeout))
	}
	if o.UniqueFor > 0 {
		opts = append(opts, asynq.Unique(o.UniqueFor))
	}
	return opts
}

// NewPaymentSyncTask builds the task that pushes one payment to Acumatica
func NewPaymentSyncTask(p PaymentSyncPayload, o TaskOptions) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payment sync payload: %w", err)
	}
	return asynq.NewTask(TaskPaymentSync, payload, o.asynqOptions(QueueCritical)...), nil
}

// NewEntitySyncTask builds the task that pulls customers or documents
func NewEntitySyncTask(p EntitySyncPayload, o TaskOptions) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode entity sync payload: %w", err)
	}
	return asynq.NewTask(TaskEntitySync, payload, o.asynqOptions(QueueDefault)...), nil
}
