package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a crashed holder can block a key.
const DefaultLockTTL = 10 * time.Second

// Locker hands out short-lived exclusive locks keyed by operation and object,
// e.g. "lock:like_video:<uid>:<vid>".
type Locker interface {
	// TryLock returns acquired=false without waiting when key is held. unlock is
	// always safe to call.
	TryLock(ctx context.Context, key string) (unlock func(), acquired bool, err error)
}

// RedisLocker implements Locker with SET NX and a token-checked delete.
type RedisLocker struct {
	rc  *RedisClient
	ttl time.Duration
}

// NewRedisLocker creates a Locker backed by redis
func NewRedisLocker(rc *RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{rc: rc, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.rc.SetNX(ctx, key, token, l.ttl)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.rc.CompareAndDelete(releaseCtx, key, token); err != nil {
			logger.Log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, true, nil
}

// LocalLocker is an in-process Locker for single-instance deployments and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewLocalLocker creates an in-process Locker
func NewLocalLocker(ttl time.Duration) *LocalLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &LocalLocker{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return func() {}, false, nil
	}
	expires := now.Add(l.ttl)
	l.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key] == expires {
				delete(l.held, key)
			}
		})
	}, true, nil
}
