package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

// SyncPlanner decides which organizations need work and queues it
type SyncPlanner interface {
	// ScheduleDue queues inbound syncs whose interval has elapsed
	ScheduleDue(ctx context.Context, now time.Time) (int, error)

	// RetryAutoSyncFailures queues failed payment pushes again
	RetryAutoSyncFailures(ctx context.Context) (int, error)
}

// StaleLogReaper fails sync logs and payment pushes left unfinished by a
// stopped process
type StaleLogReaper interface {
	FailStale(ctx context.Context, before time.Time) (int64, error)
}

// ---------------------------------------------------------------------------
// SyncTriggerConfig
// ---------------------------------------------------------------------------

// SyncTriggerConfig holds configuration for the sync trigger
type SyncTriggerConfig struct {
	// CheckInterval is how often due syncs are looked for
	CheckInterval time.Duration
	// RetryInterval is how often failed payment pushes are queued again
	RetryInterval time.Duration
	// StaleAfter is how long a RUNNING log or a PENDING payment push may stay open
	StaleAfter time.Duration
}

// DefaultSyncTriggerConfig returns default configuration
func DefaultSyncTriggerConfig() SyncTriggerConfig {
	return SyncTriggerConfig{
		CheckInterval: time.Minute,
		RetryInterval: 15 * time.Minute,
		StaleAfter:    time.Hour,
	}
}

// ErrInvalidConfig wraps every SyncTriggerConfig validation failure
var ErrInvalidConfig = errors.New("scheduler: invalid sync trigger config")

// Validate checks that every interval is positive
func (c SyncTriggerConfig) Validate() error {
	switch {
	case c.CheckInterval <= 0:
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	case c.RetryInterval <= 0:
		return fmt.Errorf("%w: retry interval must be positive", ErrInvalidConfig)
	case c.StaleAfter <= 0:
		return fmt.Errorf("%w: stale-after must be positive", ErrInvalidConfig)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncTrigger
// ---------------------------------------------------------------------------

// SyncTrigger runs the Acumatica auto-sync loop: on every tick it closes
// stale logs, queues due customer and document pulls and, less often,
// retries failed payment pushes.
type SyncTrigger struct {
	config  SyncTriggerConfig
	planner SyncPlanner
	reaper  StaleLogReaper
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRetry time.Time
}

// NewSyncTrigger creates a new sync trigger
func NewSyncTrigger(config SyncTriggerConfig, planner SyncPlanner, reaper StaleLogReaper, logger *zap.Logger) (*SyncTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncTrigger{
		config:  config,
		planner: planner,
		reaper:  reaper,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Start starts the trigger loop
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started",
		zap.Duration("check_interval", t.config.CheckInterval),
		zap.Duration("retry_interval", t.config.RetryInterval))
	return nil
}

// Stop stops the trigger and waits for the current tick
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Sync trigger stop timed out")
		return ctx.Err()
	}
}

func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs one pass of the loop
func (t *SyncTrigger) Tick(ctx context.Context) {
	now := t.now()

	if t.reaper != nil {
		n, err := t.reaper.FailStale(ctx, now.Add(-t.config.StaleAfter))
		if err != nil {
			t.logger.Error("Failed to close stale sync runs", zap.Error(err))
		} else if n > 0 {
			t.logger.Warn("Closed stale sync runs", zap.Int64("count", n))
		}
	}

	queued, err := t.planner.ScheduleDue(ctx, now)
	if err != nil {
		t.logger.Error("Failed to schedule due syncs", zap.Error(err))
	} else if queued > 0 {
		t.logger.Info("Scheduled syncs queued", zap.Int("count", queued))
	}

	t.mu.Lock()
	retryDue := now.Sub(t.lastRetry) >= t.config.RetryInterval
	if retryDue {
		t.lastRetry = now
	}
	t.mu.Unlock()
	if !retryDue {
		return
	}

	retried, err := t.planner.RetryAutoSyncFailures(ctx)
	if err != nil {
		t.logger.Error("Failed to retry payment syncs", zap.Error(err))
		return
	}
	if retried > 0 {
		t.logger.Info("Failed payment syncs queued again", zap.Int("count", retried))
	}
}
