package locking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker implements Locker with SET NX PX and a retry/backoff loop,
// letting replicated engine instances share one serialization namespace.
// Keys are namespaced under "lock:".
type RedisLocker struct {
	client  *redis.Client
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait, backoff: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(b)
	full := "lock:" + key

	deadline := time.Now().Add(l.wait)
	backoff := l.backoff
	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(full, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// release deletes the key only when it still holds our token, so an expired
// lock taken over by another instance is left alone.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	l.client.Eval(ctx, script, []string{key}, token)
}
