package cache

import (
	"context"
	"sync"
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

type lockEntry struct {
	token  string
	expiry time.Time
}

// InMemorySyncLock implements SyncLock with a map. It only protects a single
// process and is used when Redis is disabled and in tests.
type InMemorySyncLock struct {
	mu        sync.Mutex
	entries   map[string]lockEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySyncLock creates the lock and starts the expiry sweeper
func NewInMemorySyncLock() *InMemorySyncLock {
	l := &InMemorySyncLock{
		entries:  make(map[string]lockEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.sweepLoop(5 * time.Minute)
	return l
}

// Acquire takes key for ttl unless a live entry exists
func (l *InMemorySyncLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, held := l.entries[key]; held && now.Before(entry.expiry) {
		return "", nil
	}
	token := uuid.NewString()
	l.entries[key] = lockEntry{token: token, expiry: now.Add(ttl)}
	return token, nil
}

// Release frees key when it still holds token
func (l *InMemorySyncLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, held := l.entries[key]; held && entry.token == token {
		delete(l.entries, key)
	}
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemorySyncLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// Len returns the number of live and expired entries not yet swept
func (l *InMemorySyncLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *InMemorySyncLock) sweepLoop(every time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *InMemorySyncLock) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		if !now.Before(entry.expiry) {
			delete(l.entries, key)
		}
	}
}

var _ shared.SyncLock = (*InMemorySyncLock)(nil)
