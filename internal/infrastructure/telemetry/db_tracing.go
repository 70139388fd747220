package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "arflow:query_start"

// DBTracingConfig controls GORM instrumentation
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in db.statement. Customer names and
	// emails end up in spans when set, so leave it off in production.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	TracerProvider  trace.TracerProvider
}

// DefaultDBTracingConfig returns tracing settings for PostgreSQL
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// InstrumentGORM registers the otelgorm plugin plus callbacks that flag slow
// and failed statements on the span otelgorm opened.
func InstrumentGORM(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}

	before := func(tx *gorm.DB) { tx.InstanceSet(queryStartKey, time.Now()) }
	after := slowQueryCallback(cfg.SlowQueryThresh)
	cb := db.Callback()
	// after runs ahead of otelgorm's own "after:*" hook, which ends the span
	var errs []error
	errs = append(errs,
		cb.Create().Before("gorm:create").Register("arflow:before_create", before),
		cb.Query().Before("gorm:query").Register("arflow:before_query", before),
		cb.Update().Before("gorm:update").Register("arflow:before_update", before),
		cb.Delete().Before("gorm:delete").Register("arflow:before_delete", before),
		cb.Row().Before("gorm:row").Register("arflow:before_row", before),
		cb.Raw().Before("gorm:raw").Register("arflow:before_raw", before),
		cb.Create().After("gorm:create").Before("after:create").Register("arflow:after_create", after),
		cb.Query().After("gorm:query").Before("after:query").Register("arflow:after_query", after),
		cb.Update().After("gorm:update").Before("after:update").Register("arflow:after_update", after),
		cb.Delete().After("gorm:delete").Before("after:delete").Register("arflow:after_delete", after),
		cb.Row().After("gorm:row").Before("after:row").Register("arflow:after_row", after),
		cb.Raw().After("gorm:raw").Before("after:raw").Register("arflow:after_raw", after),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to register tracing callbacks: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.Bool("full_sql", cfg.LogFullSQL),
	)
	return nil
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			span.RecordError(tx.Error)
			span.SetStatus(codes.Error, tx.Error.Error())
		}
		v, ok := tx.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("threshold_ms", threshold.Milliseconds()),
			))
		}
	}
}
