package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a lock only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSyncLock implements SyncLock with SET NX so that every API instance
// and job worker shares the same locks
type RedisSyncLock struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisSyncLock wraps an existing client. The client is not closed by Close.
func NewRedisSyncLock(client redis.UniversalClient) *RedisSyncLock {
	return &RedisSyncLock{client: client, keyPrefix: "arflow:lock:"}
}

// Acquire takes key for ttl, storing a random token as its value
func (l *RedisSyncLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release deletes key when it still holds token
func (l *RedisSyncLock) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (l *RedisSyncLock) Close() error {
	return nil
}

var _ shared.SyncLock = (*RedisSyncLock)(nil)
