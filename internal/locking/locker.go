package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired means the lock wait budget ran out. Callers surface this as a
// retryable conflict, never as a hang.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes operations on a named resource (a draft id or a team's
// scheduling namespace). Acquire blocks for at most the configured wait and
// returns a release func on success.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker implements Locker with one channel-semaphore per key. Suitable
// for a single process; use RedisLocker when the engine runs replicated.
type MemoryLocker struct {
	wait time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &MemoryLocker{wait: wait, locks: make(map[string]chan struct{})}
}

func (l *MemoryLocker) sem(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.sem(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, ErrNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
