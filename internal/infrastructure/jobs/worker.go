package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/application/authz"
	integrationapp "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Syncer runs the sync work behind queued tasks
type Syncer interface {
	SyncPaymentToAcumatica(ctx context.Context, actor authz.Actor, paymentID uuid.UUID, trigger integration.SyncTrigger) (*integrationapp.PaymentSyncResponse, error)
	SyncEntity(ctx context.Context, actor authz.Actor, entity integration.SyncEntity, trigger integration.SyncTrigger, full bool) (*integrationapp.SyncLogResponse, error)
}

// WorkerConfig holds the worker pool settings
type WorkerConfig struct {
	Concurrency     int
	ShutdownTimeout time.Duration
}

// Handlers turns queued tasks into sync calls
type Handlers struct {
	syncer Syncer
	logger *zap.Logger
}

// NewHandlers creates the task handlers
func NewHandlers(syncer Syncer, logger *zap.Logger) *Handlers {
	return &Handlers{syncer: syncer, logger: logger}
}

// Mux routes task types to their handlers
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPaymentSync, h.HandlePaymentSync)
	mux.HandleFunc(TaskEntitySync, h.HandleEntitySync)
	return mux
}

// HandlePaymentSync pushes one payment. Errors the ERP may recover from
// are returned so asynq retries them; the rest skip retry.
func (h *Handlers) HandlePaymentSync(ctx context.Context, t *asynq.Task) error {
	var p PaymentSyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payment sync payload: %v: %w", err, asynq.SkipRetry)
	}
	retry, _ := asynq.GetRetryCount(ctx)
	l := h.logger.With(
		zap.String("organization_id", p.OrganizationID.String()),
		zap.String("payment_id", p.PaymentID.String()),
		zap.String("trigger", string(p.Trigger)),
		zap.Int("retry", retry))

	resp, err := h.syncer.SyncPaymentToAcumatica(ctx, authz.System(p.OrganizationID), p.PaymentID, p.Trigger)
	if err != nil {
		return h.classify(l, err)
	}
	l.Info("Payment sync task done",
		zap.String("erp_reference", resp.ERPReference),
		zap.Bool("already_synced", resp.AlreadySynced))
	return nil
}

// HandleEntitySync pulls customers or documents. A pull that finds another
// run in progress is dropped since that run covers the same data.
func (h *Handlers) HandleEntitySync(ctx context.Context, t *asynq.Task) error {
	var p EntitySyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode entity sync payload: %v: %w", err, asynq.SkipRetry)
	}
	l := h.logger.With(
		zap.String("organization_id", p.OrganizationID.String()),
		zap.String("entity", string(p.Entity)),
		zap.String("trigger", string(p.Trigger)))

	resp, err := h.syncer.SyncEntity(ctx, authz.System(p.OrganizationID), p.Entity, p.Trigger, p.Full)
	if errors.Is(err, shared.ErrSyncInProgress) {
		l.Info("Entity sync already running, task dropped")
		return nil
	}
	if err != nil {
		return h.classify(l, err)
	}
	l.Info("Entity sync task done",
		zap.String("status", resp.Status),
		zap.Int("processed", resp.Processed))
	return nil
}

func (h *Handlers) classify(l *zap.Logger, err error) error {
	if IsRetryable(err) {
		l.Warn("Sync task failed, will retry", zap.Error(err))
		return err
	}
	l.Error("Sync task failed permanently", zap.Error(err))
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

// IsRetryable reports whether a failed sync may succeed when run again
func IsRetryable(err error) bool {
	switch shared.ErrorCode(err) {
	case shared.ErrSyncInProgress.Code, shared.ErrConcurrencyConflict.Code, "OPTIMISTIC_LOCK_ERROR":
		return true
	case "":
	default:
		return false
	}
	switch {
	case errors.Is(err, integration.ErrERPUnavailable),
		errors.Is(err, integration.ErrERPAuthFailed),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, integration.ErrERPNotConfigured),
		errors.Is(err, integration.ErrERPInvalidResponse):
		return false
	}
	var erpErr *integration.ERPError
	if errors.As(err, &erpErr) {
		return erpErr.StatusCode == 429 || erpErr.StatusCode >= 500
	}
	// Transport and database errors
	return true
}

// Worker runs the asynq server
type Worker struct {
	server   *asynq.Server
	handlers *Handlers
	logger   *zap.Logger
}

// NewWorker creates an asynq server for the sync queues
func NewWorker(redis asynq.RedisClientOpt, cfg WorkerConfig, handlers *Handlers, logger *zap.Logger) *Worker {
	server := asynq.NewServer(redis, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		RetryDelayFunc:  RetryDelay,
		Logger:          logger.Named("asynq").Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				logger.Error("Sync task exhausted its retries",
					zap.String("type", task.Type()),
					zap.Int("retried", retried),
					zap.Error(err))
			}
		}),
	})
	return &Worker{server: server, handlers: handlers, logger: logger}
}

// Start starts processing tasks in the background
func (w *Worker) Start() error {
	w.logger.Info("Starting sync job worker")
	return w.server.Start(w.handlers.Mux())
}

// Stop waits for running tasks and stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping sync job worker")
	w.server.Shutdown()
}

// RetryDelay backs off exponentially from 30s, capped at 30 minutes
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 6 {
		n = 6
	}
	delay := 30 * time.Second * time.Duration(1<<n)
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	return delay
}
