package cache

import (
	"context"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewSyncLock returns a Redis-backed lock when a client is available. In
// production a missing client is an error since in-memory locks do not
// protect against a second instance.
func NewSyncLock(client *redis.Client, cfg *config.Config, logger *zap.Logger) (shared.SyncLock, error) {
	if client != nil {
		logger.Info("using Redis sync lock")
		return NewRedisSyncLock(client), nil
	}
	if cfg.IsProduction() {
		return nil, errRedisRequired
	}
	logger.Warn("Redis disabled, using in-memory sync lock; concurrent instances are not coordinated")
	return NewInMemorySyncLock(), nil
}

// ConnectOptional connects to Redis when enabled, returning nil when disabled
func ConnectOptional(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return NewRedisClient(ctx, cfg)
}
