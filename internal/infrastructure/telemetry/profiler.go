package telemetry

import (
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// profileTypes are collected whenever profiling is on. Mutex and block
// profiles need runtime sampling rates and are left out.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler pushes continuous profiles to Pyroscope
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	mu       sync.Mutex
	stopped  bool
}

// startProfiler starts pushing profiles for cfg.ServiceName to cfg.PyroscopeURL
func startProfiler(cfg Config, logger *zap.Logger) (*Profiler, error) {
	if cfg.PyroscopeURL == "" {
		return nil, fmt.Errorf("pyroscope url is required when profiling is enabled")
	}
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("service name is required when profiling is enabled")
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	if cfg.ServiceVersion != "" {
		tags["version"] = cfg.ServiceVersion
	}

	pyroCfg := pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.PyroscopeURL,
		Logger:          pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:            tags,
		ProfileTypes:    profileTypes,
	}
	if cfg.PyroscopeUser != "" && cfg.PyroscopePassword != "" {
		pyroCfg.BasicAuthUser = cfg.PyroscopeUser
		pyroCfg.BasicAuthPassword = cfg.PyroscopePassword
	}

	profiler, err := pyroscope.Start(pyroCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.PyroscopeURL),
		zap.String("application_name", cfg.ServiceName),
	)
	return &Profiler{profiler: profiler, logger: logger}, nil
}

// Stop flushes pending profiles. Later calls do nothing.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.profiler == nil {
		return nil
	}
	p.stopped = true

	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// pyroscopeLogger adapts zap to pyroscope.Logger
type pyroscopeLogger struct {
	*zap.SugaredLogger
}

var _ pyroscope.Logger = pyroscopeLogger{}
