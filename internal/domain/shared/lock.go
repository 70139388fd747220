package shared

import (
	"context"
	"time"
)

// SyncLock hands out short-lived exclusive keys. It guards work that must not
// run twice at once: ERP syncs for one organization and repeated payment
// submissions carrying the same idempotency key.
type SyncLock interface {
	// Acquire takes key for ttl and returns the holder's token. The token is
	// empty when another holder has the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release frees key if token still holds it. A key that expired and was
	// taken by another holder is left alone. Releasing a key that is not held
	// is not an error.
	Release(ctx context.Context, key, token string) error

	// Close releases resources held by the store
	Close() error
}

// LockConfig holds TTLs for the different lock kinds
type LockConfig struct {
	SyncTTL       time.Duration
	SubmissionTTL time.Duration
}

// DefaultLockConfig returns the default lock configuration
func DefaultLockConfig() LockConfig {
	return LockConfig{
		SyncTTL:       15 * time.Minute,
		SubmissionTTL: 24 * time.Hour,
	}
}
