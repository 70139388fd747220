package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"ARFLOW_APP_NAME",
	"ARFLOW_APP_ENV",
	"ARFLOW_APP_PORT",
	"ARFLOW_DATABASE_HOST",
	"ARFLOW_DATABASE_PORT",
	"ARFLOW_DATABASE_USER",
	"ARFLOW_DATABASE_PASSWORD",
	"ARFLOW_DATABASE_DBNAME",
	"ARFLOW_DATABASE_SSLMODE",
	"ARFLOW_DATABASE_MAX_OPEN_CONNS",
	"ARFLOW_DATABASE_MAX_IDLE_CONNS",
	"ARFLOW_REDIS_ENABLED",
	"ARFLOW_JWT_SECRET",
	"ARFLOW_JOBS_ENABLED",
	"ARFLOW_SECURITY_ENCRYPTION_KEY",
	"ARFLOW_EMAIL_ENABLED",
	"ARFLOW_EMAIL_API_KEY",
	"ARFLOW_EMAIL_FROM_EMAIL",
	"ARFLOW_HTTP_CORS_ALLOW_ORIGINS",
	"ARFLOW_SYNC_LOCK_TTL",
	"ARFLOW_TELEMETRY_ENABLED",
	"ARFLOW_TELEMETRY_ENDPOINT",
	"ARFLOW_TELEMETRY_SAMPLING_RATIO",
	"ARFLOW_TELEMETRY_PROFILING_ENABLED",
	"ARFLOW_TELEMETRY_PYROSCOPE_URL",
	"ARFLOW_HTTP_SWAGGER_ENABLED",
}

// clearEnv blanks every managed variable for the duration of the test.
// viper treats empty environment values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
	}
}

func validKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "arflow", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "arflow", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
		assert.Equal(t, 15*time.Minute, cfg.Auth.LockDuration)
		assert.Equal(t, 15*time.Minute, cfg.Sync.LockTTL)
		assert.Equal(t, 24*time.Hour, cfg.Sync.SubmissionTTL)
		assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Equal(t, time.Minute, cfg.Telemetry.MetricsInterval)
		assert.False(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "http://localhost:4040", cfg.Telemetry.PyroscopeURL)
		assert.True(t, cfg.HTTP.SwaggerEnabled)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("profiling and swagger are switched by environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_TELEMETRY_PROFILING_ENABLED", "true")
		t.Setenv("ARFLOW_TELEMETRY_PYROSCOPE_URL", "http://pyroscope:4040")
		t.Setenv("ARFLOW_HTTP_SWAGGER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Telemetry.ProfilingEnabled)
		assert.False(t, cfg.Telemetry.Enabled, "profiling does not turn on OTLP export")
		assert.Equal(t, "http://pyroscope:4040", cfg.Telemetry.PyroscopeURL)
		assert.False(t, cfg.HTTP.SwaggerEnabled)
	})

	t.Run("loads values from environment variables with ARFLOW prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_APP_NAME", "test-app")
		t.Setenv("ARFLOW_APP_ENV", "testing")
		t.Setenv("ARFLOW_APP_PORT", "9000")
		t.Setenv("ARFLOW_DATABASE_HOST", "testdb.local")
		t.Setenv("ARFLOW_DATABASE_PORT", "5433")
		t.Setenv("ARFLOW_DATABASE_USER", "testuser")
		t.Setenv("ARFLOW_DATABASE_PASSWORD", "testpass")
		t.Setenv("ARFLOW_DATABASE_DBNAME", "testdb")
		t.Setenv("ARFLOW_DATABASE_SSLMODE", "require")
		t.Setenv("ARFLOW_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("ARFLOW_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("ARFLOW_SYNC_LOCK_TTL", "5m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5*time.Minute, cfg.Sync.LockTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("ARFLOW_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("jobs require redis", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_JOBS_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires redis.enabled")

		t.Setenv("ARFLOW_REDIS_ENABLED", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Jobs.Enabled)
	})

	t.Run("rejects malformed encryption key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_SECURITY_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("telemetry settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_TELEMETRY_ENABLED", "true")
		t.Setenv("ARFLOW_TELEMETRY_ENDPOINT", "otel-collector:4317")
		t.Setenv("ARFLOW_TELEMETRY_SAMPLING_RATIO", "0.25")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "otel-collector:4317", cfg.Telemetry.Endpoint)
		assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)

		t.Setenv("ARFLOW_TELEMETRY_SAMPLING_RATIO", "1.5")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("email requires api key and sender", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_EMAIL_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email.api_key")

		t.Setenv("ARFLOW_EMAIL_API_KEY", "re_test")
		t.Setenv("ARFLOW_EMAIL_FROM_EMAIL", "billing@example.com")
		_, err = Load()
		require.NoError(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARFLOW_APP_ENV", "production")
		t.Setenv("ARFLOW_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("ARFLOW_DATABASE_PASSWORD", "secure-password")
		t.Setenv("ARFLOW_DATABASE_SSLMODE", "require")
		t.Setenv("ARFLOW_SECURITY_ENCRYPTION_KEY", validKey())
	}

	tests := []struct {
		name    string
		mutate  func(t *testing.T)
		wantErr string
	}{
		{
			name:    "requires jwt.secret",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_JWT_SECRET", "") },
			wantErr: "jwt.secret is required in production",
		},
		{
			name:    "requires long jwt.secret",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_JWT_SECRET", "short-secret") },
			wantErr: "jwt.secret must be at least 32 characters",
		},
		{
			name:    "requires database.password",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_DATABASE_PASSWORD", "") },
			wantErr: "database.password is required in production",
		},
		{
			name:    "requires SSL",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_DATABASE_SSLMODE", "disable") },
			wantErr: "database.sslmode cannot be 'disable' in production",
		},
		{
			name:    "requires encryption key",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_SECURITY_ENCRYPTION_KEY", "") },
			wantErr: "security.encryption_key is required in production",
		},
		{
			name:    "rejects wildcard CORS",
			mutate:  func(t *testing.T) { t.Setenv("ARFLOW_HTTP_CORS_ALLOW_ORIGINS", "*") },
			wantErr: "cors_allow_origins cannot be '*'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setValidProductionBase(t)
			tt.mutate(t)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())

		key, err := cfg.Security.Key()
		require.NoError(t, err)
		assert.Equal(t, byte('0'), key[0])
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
