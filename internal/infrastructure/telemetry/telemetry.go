// Package telemetry wires OpenTelemetry traces, metrics and logs. All three
// signals are exported over OTLP gRPC to one collector. When telemetry is
// disabled the global no-op providers stay in place and every helper here
// remains safe to call. Continuous profiling through Pyroscope is switched
// on separately.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/infrastructure/config"
	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InstrumentationName names the tracer and meter used by ARFlow code
const InstrumentationName = "github.com/arflow/backend"

// Config holds telemetry settings
type Config struct {
	Enabled         bool
	Endpoint        string
	Insecure        bool
	ServiceName     string
	ServiceVersion  string
	SamplingRatio   float64
	MetricsInterval time.Duration
	LogsEnabled     bool

	ProfilingEnabled  bool
	PyroscopeURL      string
	PyroscopeUser     string
	PyroscopePassword string
}

// FromConfig builds a Config from the application configuration
func FromConfig(cfg config.TelemetryConfig, serviceName, version string) Config {
	return Config{
		Enabled:         cfg.Enabled,
		Endpoint:        cfg.Endpoint,
		Insecure:        cfg.Insecure,
		ServiceName:     serviceName,
		ServiceVersion:  version,
		SamplingRatio:   cfg.SamplingRatio,
		MetricsInterval: cfg.MetricsInterval,
		LogsEnabled:     cfg.LogsEnabled,

		ProfilingEnabled:  cfg.ProfilingEnabled,
		PyroscopeURL:      cfg.PyroscopeURL,
		PyroscopeUser:     cfg.PyroscopeUser,
		PyroscopePassword: cfg.PyroscopePassword,
	}
}

// Providers owns the SDK providers and their shutdown
type Providers struct {
	tracer *sdktrace.TracerProvider
	// traceProvider is tracer, wrapped to tag spans with profile ids when
	// profiling is on
	traceProvider trace.TracerProvider
	meter         *sdkmetric.MeterProvider
	logs          *sdklog.LoggerProvider
	profiler      *Profiler
	config        Config
	logger        *zap.Logger
}

// Setup creates the providers and installs them globally. With telemetry
// disabled it returns a Providers whose accessors fall back to the globals.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{config: cfg, logger: logger}
	if cfg.ProfilingEnabled {
		profiler, err := startProfiler(cfg, logger)
		if err != nil {
			return nil, err
		}
		p.profiler = profiler
	}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return p, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	)
	p.traceProvider = p.tracer
	if p.profiler != nil {
		p.traceProvider = otelpyroscope.NewTracerProvider(p.tracer)
	}
	otel.SetTracerProvider(p.traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.meter)

	if cfg.LogsEnabled {
		logExporter, err := otlploggrpc.New(ctx, logOpts...)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
		}
		p.logs = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		)
		global.SetLoggerProvider(p.logs)
	}

	logger.Info("Telemetry initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Duration("metrics_interval", interval),
		zap.Bool("logs", cfg.LogsEnabled),
	)
	return p, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// sampler honours the parent's decision and samples root spans by ratio
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Enabled reports whether exporters are running
func (p *Providers) Enabled() bool {
	return p.tracer != nil
}

// Tracer returns the ARFlow tracer
func (p *Providers) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.GetTracerProvider().Tracer(InstrumentationName)
	}
	return p.traceProvider.Tracer(InstrumentationName)
}

// Meter returns the ARFlow meter
func (p *Providers) Meter() metric.Meter {
	if p.meter == nil {
		return otel.GetMeterProvider().Meter(InstrumentationName)
	}
	return p.meter.Meter(InstrumentationName)
}

// TracerProvider returns the SDK tracer provider, or the global one when
// telemetry is disabled
func (p *Providers) TracerProvider() trace.TracerProvider {
	if p.tracer == nil {
		return otel.GetTracerProvider()
	}
	return p.traceProvider
}

// Profiling reports whether profiles are being pushed
func (p *Providers) Profiling() bool {
	return p.profiler != nil
}

// Shutdown flushes and stops every provider. It is safe on a disabled
// Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if p.profiler != nil {
		if err := p.profiler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("profiles: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Telemetry shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
